// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

// _MINFREENODES is the default value recorded by Minfreenodes.
const _MINFREENODES int = 20

// _DEFAULTMAXNODEINC is the default cap on how many nodes a single
// resize may add (same order of magnitude as dalzilio-rudd's
// _DEFAULTMAXNODEINC).
const _DEFAULTMAXNODEINC int = 1 << 20

// _MAXLEVEL caps the number of variables a Forest may be given, so
// that level values always fit comfortably in an int32.
const _MAXLEVEL int = 0x1FFFFF

// config stores the tunable parameters of a Forest (spec.md §6). It is
// built by makeconfigs and mutated by the Option functions passed to
// NewForest, mirroring the functional-options pattern in
// dalzilio-rudd/config.go.
type config struct {
	nodesize        int
	cachesize       int
	cacheratio      int
	maxnodesize     int
	maxnodeincrease int
	minfreenodes    int

	batchSize                  int
	levelChangeFlush           int
	maximizeBatchRefill        bool
	useQuasiReducedDuringBuild bool
	reductionThresholdSparse   float64
	compactionThreshold        float64
}

func makeconfig(numLevels int) *config {
	return &config{
		nodesize:                 2*numLevels + 2,
		minfreenodes:             _MINFREENODES,
		maxnodeincrease:          _DEFAULTMAXNODEINC,
		batchSize:                256,
		levelChangeFlush:         0,
		reductionThresholdSparse: 0.5,
		compactionThreshold:      0.5,
	}
}

// Option configures a Forest at construction time.
type Option func(*config)

// Nodesize sets a preferred initial size for the node table. By
// default the table starts large enough to hold two terminals and the
// per-level primitive variable nodes.
func Nodesize(size int) Option {
	return func(c *config) {
		if size > 2 {
			c.nodesize = size
		}
	}
}

// Maxnodesize caps the total number of nodes a Forest may allocate. A
// resize past this limit fails with ErrOutOfMemory. Zero (the default)
// means no limit.
func Maxnodesize(size int) Option {
	return func(c *config) { c.maxnodesize = size }
}

// Maxnodeincrease caps how many nodes a single resize may add. Zero
// means no limit; the default is about one million nodes.
func Maxnodeincrease(size int) Option {
	return func(c *config) { c.maxnodeincrease = size }
}

// Minfreenodes records a free-node percentage (default 20%) in the
// Forest's node store. No code reads it back, so it does not affect
// resizing or compaction.
func Minfreenodes(ratio int) Option {
	return func(c *config) { c.minfreenodes = ratio }
}

// Cachesize sets the initial number of entries in the operation cache.
func Cachesize(size int) Option {
	return func(c *config) { c.cachesize = size }
}

// Cacheratio records the percentage of cache entries to keep per node
// table slot. It is used only when OpCache.Resize is called; nothing in
// this module calls Resize, so the cache keeps its initial size.
func Cacheratio(ratio int) Option {
	return func(c *config) { c.cacheratio = ratio }
}

// BatchSize records a minterm batch size (default 256) in the Forest's
// configuration. builder.Explicit does not read it; it takes its own
// builder.BatchSize option.
func BatchSize(n int) Option {
	return func(c *config) { c.batchSize = n }
}

// LevelChangeFlush records an early-flush level threshold in the
// Forest's configuration. builder.Explicit does not read it; it takes
// its own builder.LevelChangeFlush option.
func LevelChangeFlush(level int) Option {
	return func(c *config) { c.levelChangeFlush = level }
}

// MaximizeBatchRefill records a batch-refill flag in the Forest's
// configuration. builder.Explicit does not read it; it takes its own
// builder.MaximizeBatchRefill option.
func MaximizeBatchRefill(on bool) Option {
	return func(c *config) { c.maximizeBatchRefill = on }
}

// UseQuasiReducedDuringBuild records a relation-build flag in the
// Forest's configuration. builder.Explicit does not read it; it takes
// its own builder.UseQuasiReducedDuringBuild option.
func UseQuasiReducedDuringBuild(on bool) Option {
	return func(c *config) { c.useQuasiReducedDuringBuild = on }
}

// ReductionThresholdSparse sets the nnz/size ratio below which a node
// is stored sparse rather than full.
func ReductionThresholdSparse(ratio float64) Option {
	return func(c *config) { c.reductionThresholdSparse = ratio }
}

// CompactionThreshold sets the wasted-byte fraction of the NodeStore
// that triggers a compaction pass.
func CompactionThreshold(ratio float64) Option {
	return func(c *config) { c.compactionThreshold = ratio }
}
