/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package graph

import (
	"path"
	"sync"

	"sandgraph.dev/bundle/module"
	"sandgraph.dev/bundle/resolver"
)

// Manager owns every TranspiledModule for one sandbox: the current file
// set, the node table keyed by (path, query), the resolved manifest and
// externals, and the collaborators (preset, evaluator, downloader, sink,
// store) wired in at construction.
//
// mu guards the node/module maps against the concurrent access transpile's
// sibling fan-out produces: the design that motivates this core treats the
// walk as single-threaded cooperative, but Go's goroutines make the
// fan-out genuinely parallel, so the shared maps need a real lock rather
// than the original's implicit single-owner assumption.
type Manager struct {
	id   string
	root string

	preset    Preset
	evaluator Evaluator
	download  DependencyDownloader
	sink      Sink
	store     Store

	sourceMaps    bool
	loaderOptions map[string]any
	envVariables  map[string]string
	reload        func()

	webpackHMR bool

	mu         sync.Mutex
	modules    map[string]*module.Module
	manifest   Manifest
	externals  map[string]External
	downloaded map[string]*module.Module

	nodes map[NodeID]*TranspiledModule
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithEvaluator sets the evaluator backend. Required before EvaluateModule
// is called; omitted in tests that only exercise transpile/resolve.
func WithEvaluator(e Evaluator) Option { return func(m *Manager) { m.evaluator = e } }

// WithDownloader wires the external dependency-download collaborator.
func WithDownloader(d DependencyDownloader) Option { return func(m *Manager) { m.download = d } }

// WithSink wires the diagnostics sink. Defaults to a no-op sink.
func WithSink(s Sink) Option { return func(m *Manager) { m.sink = s } }

// WithStore wires the blob-persistence collaborator. Defaults to a no-op
// store (Load always reports not-found).
func WithStore(s Store) Option { return func(m *Manager) { m.store = s } }

// WithSourceMaps toggles whether loader contexts request source maps.
func WithSourceMaps(v bool) Option { return func(m *Manager) { m.sourceMaps = v } }

// WithLoaderOptions sets the transpiler-options bag merged into every
// loader context's Options field.
func WithLoaderOptions(opts map[string]any) Option {
	return func(m *Manager) { m.loaderOptions = opts }
}

// WithEnv sets the environment map injected into evaluated code as
// process.env.
func WithEnv(env map[string]string) Option { return func(m *Manager) { m.envVariables = env } }

// WithExternals seeds the externals table up front, bypassing SetManifest.
func WithExternals(ext map[string]External) Option {
	return func(m *Manager) { m.externals = ext }
}

// WithReload wires the full-page-reload request a non-HMR-accepting entry
// triggers when evaluated while HMR is active elsewhere in the sandbox.
func WithReload(fn func()) Option { return func(m *Manager) { m.reload = fn } }

func (m *Manager) requestReload() {
	if m.reload != nil {
		m.reload()
	}
}

// NewManager constructs a Manager for sandboxID rooted at "/", with preset
// driving loader selection and the given options applied in order.
func NewManager(sandboxID string, preset Preset, opts ...Option) *Manager {
	m := &Manager{
		id:         sandboxID,
		root:       "/",
		preset:     preset,
		sink:       nullSink{},
		store:      nullStore{},
		modules:    make(map[string]*module.Module),
		externals:  make(map[string]External),
		downloaded: make(map[string]*module.Module),
		nodes:      make(map[NodeID]*TranspiledModule),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the sandbox identity this manager was constructed with.
func (m *Manager) ID() string { return m.id }

// WebpackHMR reports whether any node in this sandbox has registered an HMR
// accept hook during the current session.
func (m *Manager) WebpackHMR() bool { return m.webpackHMR }

// SetManifest adopts the latest resolved external-dependency manifest.
func (m *Manager) SetManifest(manifest Manifest) { m.manifest = manifest }

// Load restores the node graph from the store's prior blob for this
// sandbox. Any failure to find or decode a blob is swallowed and the
// manager starts with an empty graph, matching the spec's best-effort
// restore policy.
func (m *Manager) Load() error {
	blob, ok, err := m.store.Load(m.id)
	if err != nil || !ok {
		return nil
	}
	restored, err := Deserialize(blob)
	if err != nil {
		return nil
	}
	m.nodes = restored
	for id, n := range m.nodes {
		m.modules[id.Path] = n.Module
	}
	return nil
}

// Save serializes the current graph and hands the blob to the store.
func (m *Manager) Save() error {
	blob, err := Serialize(m.nodes)
	if err != nil {
		return err
	}
	return m.store.Save(m.id, blob)
}

// ClearCache drops the persisted blob for this sandbox.
func (m *Manager) ClearCache() error { return m.store.Clear(m.id) }

// UpdateData reconciles the node set with a new file set: a path unseen
// before gets a fresh (path, "") node, a path already present whose code
// changed gets its module swapped in via TranspiledModule.update
// (cascading reset), a path whose code is unchanged keeps its node as is,
// and
// nodes whose path disappeared from the new set are dropped unless an
// initiator still retains them or they're an entry.
func (m *Manager) UpdateData(modules []*module.Module) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(modules))
	next := make(map[string]*module.Module, len(modules))
	for _, mod := range modules {
		seen[mod.Path] = true
		next[mod.Path] = mod
	}

	for p, mod := range next {
		if old, existed := m.modules[p]; existed {
			if old.Code == mod.Code {
				continue
			}
			if n, ok := m.nodes[idOf(p, "")]; ok {
				n.update(mod)
			}
		} else {
			m.getOrCreateNodeLocked(mod, "")
		}
	}
	m.modules = next

	for id, n := range m.nodes {
		if seen[id.Path] {
			continue
		}
		if n.IsEntry || len(n.initiators) > 0 {
			continue
		}
		n.dispose()
		delete(m.nodes, id)
	}
}

// AddTranspiledModule returns the node for (mod.Path, query), creating one
// if this is the first reference.
func (m *Manager) AddTranspiledModule(mod *module.Module, query string) *TranspiledModule {
	return m.getOrCreateNode(mod, query)
}

func (m *Manager) getOrCreateNode(mod *module.Module, query string) *TranspiledModule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateNodeLocked(mod, query)
}

// getOrCreateNodeLocked assumes mu is already held.
func (m *Manager) getOrCreateNodeLocked(mod *module.Module, query string) *TranspiledModule {
	id := idOf(mod.Path, query)
	if n, ok := m.nodes[id]; ok {
		return n
	}
	n := newTranspiledModule(mod, query)
	m.nodes[id] = n
	m.modules[mod.Path] = mod
	return n
}

// modulePaths returns every module path currently in the file set, for
// LoaderContext.GetModules.
func (m *Manager) modulePaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.modules))
	for p := range m.modules {
		out = append(out, p)
	}
	return out
}

// ResolveTranspiledModule resolves specifier against fromPath following the
// path-resolver rules, returning the node for the resolved (path, query),
// or nil with no error when specifier names an external.
func (m *Manager) ResolveTranspiledModule(specifier, fromPath string) (*TranspiledModule, error) {
	mod, query, isExternal, err := m.resolve(specifier, fromPath, false)
	if err != nil {
		return nil, err
	}
	if isExternal {
		return nil, nil
	}
	return m.getOrCreateNode(mod, query), nil
}

// ResolveTranspiledModulesInDirectory returns every node whose module path
// lies under dir (resolved against fromPath if dir is relative).
func (m *Manager) ResolveTranspiledModulesInDirectory(dir, fromPath string) []*TranspiledModule {
	base := dir
	if !path.IsAbs(dir) {
		base = resolver.JoinRelative(m.root, path.Dir(fromPath), dir)
	}
	base = path.Clean(base)

	m.mu.Lock()
	var matches []*module.Module
	for p, mod := range m.modules {
		if p == base || isUnderDir(p, base) {
			matches = append(matches, mod)
		}
	}
	m.mu.Unlock()

	out := make([]*TranspiledModule, 0, len(matches))
	for _, mod := range matches {
		out = append(out, m.getOrCreateNode(mod, ""))
	}
	return out
}

func isUnderDir(p, dir string) bool {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	return len(p) > len(prefix) && p[:len(prefix)] == prefix
}

// resolve implements the path-resolver rules: loader-chain splitting,
// preset aliasing, bare-specifier classification against externals then
// manifest, and relative/absolute join with extension/index fallback.
// isAbsolute joins a relative specifier against the sandbox root ("/")
// instead of fromPath's own directory.
func (m *Manager) resolve(specifier, fromPath string, isAbsolute bool) (mod *module.Module, query string, isExternal bool, err error) {
	chainQuery, trailing, hasChain := resolver.SplitLoaderChain(specifier)
	aliased := m.preset.GetAliasedPath(trailing)

	m.mu.Lock()
	defer m.mu.Unlock()

	if resolver.IsBareSpecifier(aliased) {
		if _, ok := m.externals[aliased]; ok {
			return nil, "", true, nil
		}
		if already, ok := m.downloaded[aliased]; ok {
			if hasChain {
				query = chainQuery
			}
			return already, query, false, nil
		}
		pkgName := resolver.PackageName(aliased)
		if m.manifest == nil {
			return nil, "", false, &resolver.NotFoundError{Specifier: aliased, IsDependency: true}
		}
		entry, ok := m.manifest.Lookup(pkgName)
		if !ok {
			return nil, "", false, &resolver.NotFoundError{Specifier: aliased, IsDependency: true}
		}
		subpath := resolver.Subpath(aliased, pkgName)
		seedPath := subpath
		if subpath == "." {
			seedPath = entry.Main()
		}
		seed, ok := entry.Module(seedPath)
		if !ok {
			return nil, "", false, &resolver.NotFoundError{Specifier: aliased, IsDependency: true}
		}
		mod = m.getOrAdoptModuleLocked(seed)
		if hasChain {
			query = chainQuery
		}
		return mod, query, false, nil
	}

	baseDir := path.Dir(fromPath)
	if isAbsolute {
		baseDir = m.root
	}
	candidate := resolver.JoinRelative(m.root, baseDir, aliased)
	resolved, rErr := resolver.ResolveFile(candidate, resolver.ScriptExtensions, m.existsLocked)
	if rErr != nil {
		return nil, "", false, rErr
	}
	existing, ok := m.modules[resolved]
	if !ok {
		return nil, "", false, &resolver.NotFoundError{Specifier: specifier}
	}
	if hasChain {
		query = chainQuery
	}
	return existing, query, false, nil
}

// existsLocked assumes mu is already held.
func (m *Manager) existsLocked(p string) bool {
	_, ok := m.modules[p]
	return ok
}

// getOrAdoptModuleLocked assumes mu is already held.
func (m *Manager) getOrAdoptModuleLocked(seed *TranspiledModuleSeed) *module.Module {
	if existing, ok := m.modules[seed.Path]; ok {
		return existing
	}
	mod := &module.Module{Path: seed.Path, Code: seed.Code}
	m.modules[mod.Path] = mod
	return mod
}

func (m *Manager) getOrAdoptModule(seed *TranspiledModuleSeed) *module.Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrAdoptModuleLocked(seed)
}

// addDependency is the shared implementation behind
// LoaderContext.AddDependency/AddTranspilationDependency: resolve specifier
// from node's module path (or the sandbox root, if isAbsolute), link it
// (runtime or transpilation-only), enqueue an async download on a
// dependency-shaped not-found, or swallow any other resolution failure for
// evaluation time to surface.
func (m *Manager) addDependency(from *TranspiledModule, specifier string, runtime, isAbsolute bool) (*TranspiledModule, error) {
	mod, query, isExternal, err := m.resolve(specifier, from.Module.Path, isAbsolute)
	if isExternal {
		return nil, nil
	}
	if err != nil {
		if nf, ok := err.(*resolver.NotFoundError); ok && nf.IsDependency {
			from.asyncDependencies = append(from.asyncDependencies, m.startDownload(from, specifier))
		}
		return nil, nil
	}

	target := m.getOrCreateNode(mod, query)
	m.mu.Lock()
	if runtime {
		from.linkDependency(target)
	} else {
		from.linkTranspilationDependency(target)
	}
	m.mu.Unlock()
	return target, nil
}

func (m *Manager) startDownload(from *TranspiledModule, specifier string) *asyncDependency {
	ch := make(chan asyncResult, 1)
	go func() {
		if m.download == nil {
			ch <- asyncResult{err: &resolver.NotFoundError{Specifier: specifier, IsDependency: true}}
			return
		}
		seed, err := m.download.Download(specifier, from.Module.Path)
		if err != nil {
			ch <- asyncResult{err: err}
			return
		}
		mod := m.getOrAdoptModule(seed)
		m.mu.Lock()
		m.downloaded[specifier] = mod
		m.mu.Unlock()
		ch <- asyncResult{node: m.getOrCreateNode(mod, "")}
	}()
	return &asyncDependency{specifier: specifier, future: ch}
}

// addDependenciesInDirectory links every module under dir as a runtime
// dependency of from.
func (m *Manager) addDependenciesInDirectory(from *TranspiledModule, dir string) []*TranspiledModule {
	nodes := m.ResolveTranspiledModulesInDirectory(dir, from.Module.Path)
	m.mu.Lock()
	for _, n := range nodes {
		from.linkDependency(n)
	}
	m.mu.Unlock()
	return nodes
}

// DownloadDependency exposes the downloader collaborator directly, for
// callers that already know the specifier is an unresolved package (the
// request-level S6 recovery path), independent of a loader context.
func (m *Manager) DownloadDependency(specifier, fromPath string) (*TranspiledModule, error) {
	if m.download == nil {
		return nil, &resolver.NotFoundError{Specifier: specifier, IsDependency: true}
	}
	seed, err := m.download.Download(specifier, fromPath)
	if err != nil {
		return nil, err
	}
	mod := m.getOrAdoptModule(seed)
	m.mu.Lock()
	m.downloaded[specifier] = mod
	m.mu.Unlock()
	return m.getOrCreateNode(mod, ""), nil
}

// TranspileModules marks entry as a graph root and transpiles it and its
// transitive closure.
func (m *Manager) TranspileModules(entry *TranspiledModule) error {
	entry.IsEntry = true
	return entry.transpile(m)
}

// EvaluateModule evaluates entry and its transitive closure, then runs
// postEvaluate over every node in the graph, including nodes the walk did
// not evaluate.
func (m *Manager) EvaluateModule(entry *TranspiledModule) (map[string]any, error) {
	exports, err := m.EvaluateTranspiledModule(entry, nil)
	for _, n := range m.nodes {
		n.postEvaluate()
	}
	return exports, err
}

// EvaluateTranspiledModule is the recursive entry point require() uses to
// evaluate a dependency with a parent stack for cycle detection.
func (m *Manager) EvaluateTranspiledModule(node *TranspiledModule, parents []*TranspiledModule) (map[string]any, error) {
	return node.evaluate(m, parents)
}
