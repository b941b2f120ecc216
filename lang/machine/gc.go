package machine

// Tri-color mark-and-sweep collection for the GC-managed heap kinds: Table,
// Closure, Upvalue (open cells as well as closed), Userdata, and Coroutine.
// Strings are immutable Go strings and need no collection of their own.
//
// Grounded on the original implementation's GCObject/VM::collectGarbage
// design: every collectible object embeds a color and an intrusive "next"
// link into one flat list owned by the VM; collection marks from a small
// set of roots (globals, the running coroutine chain) and then sweeps the
// list, freeing anything left white. After every cycle the threshold is set
// to growth (default 2) times the running allocation estimate, echoing the
// original's `nextGC_ = bytesAllocated_ * 2`; that estimate only grows,
// since sweeping does not subtract the sizes of the objects it drops.

type gcColor uint8

const (
	colorWhite gcColor = iota
	colorGray
	colorBlack
)

// gcObject is implemented by every heap kind the collector manages.
type gcObject interface {
	gcColorOf() gcColor
	setGCColor(gcColor)
	gcNext() gcObject
	setGCNext(gcObject)
	setGC(gc *GC)
	// markChildren pushes every Value and gcObject this object directly
	// references onto the collector's gray worklist.
	markChildren(gc *GC)
}

// gcHeader is embedded by every collectible type, following the original's
// GCObject base class (color + intrusive link) adapted to Go's lack of
// inheritance: each concrete type embeds gcHeader and implements
// markChildren for its own kind of references. The gc back-reference, set
// once by track, lets a mutation method on the object invoke its own write
// barrier without the caller having to thread a *GC through every setter.
type gcHeader struct {
	color gcColor
	next  gcObject
	gc    *GC
}

func (h *gcHeader) gcColorOf() gcColor   { return h.color }
func (h *gcHeader) setGCColor(c gcColor) { h.color = c }
func (h *gcHeader) gcNext() gcObject     { return h.next }
func (h *gcHeader) setGCNext(o gcObject) { h.next = o }
func (h *gcHeader) setGC(gc *GC)         { h.gc = gc }

// barrier runs self's write barrier against v, graying v if self has already
// been marked black this cycle. self must be the concrete object embedding
// h (gcHeader can't pass itself as the gcObject). A no-op before self has
// been tracked.
func (h *gcHeader) barrier(self gcObject, v Value) {
	if h.gc == nil {
		return
	}
	h.gc.writeBarrier(self, v)
}

// GC owns the flat list of every collectible object allocated by a VM and
// runs stop-the-world mark-and-sweep cycles on demand.
type GC struct {
	all    gcObject // head of the intrusive linked list of every live object
	gray   []gcObject
	bytes  int64 // rough running total of every tracked allocation's size; sweeping never lowers it
	thresh int64
	growth float64         // threshold multiplier applied to bytes after each cycle
	roots  func() []Value // supplied by the VM: globals table + running coroutines
}

const gcInitialThreshold = 1 << 20 // 1 MiB of estimated allocation before the first cycle

const gcDefaultGrowth = 2.0

func newGC(roots func() []Value) *GC {
	return &GC{thresh: gcInitialThreshold, growth: gcDefaultGrowth, roots: roots}
}

// track registers a newly allocated object with the collector and charges it
// against the allocation budget, following the original's VM::addObject.
func (gc *GC) track(o gcObject, size int64) {
	o.setGCColor(colorWhite)
	o.setGCNext(gc.all)
	o.setGC(gc)
	gc.all = o
	gc.bytes += size
}

// maybeCollect runs a cycle if the running allocation estimate has reached
// the threshold.
func (gc *GC) maybeCollect() {
	if gc.bytes >= gc.thresh {
		gc.collect()
	}
}

func (gc *GC) collect() {
	gc.markRoots()
	gc.propagate()
	gc.sweep()
	gc.thresh = int64(float64(gc.bytes) * gc.growth)
	if gc.thresh < gcInitialThreshold {
		gc.thresh = gcInitialThreshold
	}
}

func (gc *GC) markRoots() {
	for _, v := range gc.roots() {
		gc.markValue(v)
	}
}

// markValue marks v if it references a collectible object, enqueuing it for
// markChildren to run during propagate. Non-object values (nil, booleans,
// numbers, strings) need no marking.
func (gc *GC) markValue(v Value) {
	if o, ok := v.(gcObject); ok {
		gc.markObject(o)
	}
}

func (gc *GC) markObject(o gcObject) {
	if o == nil || o.gcColorOf() != colorWhite {
		return
	}
	o.setGCColor(colorGray)
	gc.gray = append(gc.gray, o)
}

// propagate drains the gray worklist, turning every gray object black after
// its children have been marked gray (or are already black/gray).
func (gc *GC) propagate() {
	for len(gc.gray) > 0 {
		o := gc.gray[len(gc.gray)-1]
		gc.gray = gc.gray[:len(gc.gray)-1]
		o.markChildren(gc)
		o.setGCColor(colorBlack)
	}
}

// sweep walks the intrusive list, dropping every object left white (the Go
// runtime's own collector reclaims the memory once nothing else references
// it, so there is no explicit free step) and resetting every surviving
// object back to white for the next cycle, mirroring the original's
// VM::sweep.
func (gc *GC) sweep() {
	gc.all = rebuildLiveList(gc.all)
}

// rebuildLiveList returns a new list containing every object reachable from
// head that is still black (marked live this cycle), resetting each to
// white for the next cycle, and drops every white (unreached) object.
func rebuildLiveList(head gcObject) gcObject {
	var kept []gcObject
	for o := head; o != nil; o = o.gcNext() {
		if o.gcColorOf() != colorWhite {
			kept = append(kept, o)
		}
	}
	for i, o := range kept {
		o.setGCColor(colorWhite)
		if i+1 < len(kept) {
			o.setGCNext(kept[i+1])
		} else {
			o.setGCNext(nil)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept[0]
}

// writeBarrier must be called whenever a black object b is made to
// reference a white object v, so the white object survives the current
// cycle even though b was already swept past by the mark phase (forward
// barrier: it grays v directly, the same fix applied by the original at
// every table/closure/upvalue mutation site). gc may be nil for a VM
// running without collection (e.g. short-lived scripts); the call is then a
// no-op.
func (gc *GC) writeBarrier(b gcObject, v Value) {
	if gc == nil || b.gcColorOf() != colorBlack {
		return
	}
	if o, ok := v.(gcObject); ok && o.gcColorOf() == colorWhite {
		o.setGCColor(colorGray)
		gc.gray = append(gc.gray, o)
	}
}
