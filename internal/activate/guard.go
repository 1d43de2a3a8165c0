package activate

// ThreadInput links and unlinks thread input queues.
type ThreadInput interface {
	AttachThreadInput(from, to uint32, attach bool) bool
}

// ThreadInputGuard holds an AttachThreadInput link between two threads.
// Always pair acquisition with a deferred Release: a link left in place
// keeps both threads sharing keyboard and focus state after we are done.
type ThreadInputGuard struct {
	ti       ThreadInput
	from, to uint32
	attached bool
	same     bool
}

// AttachThreadInput links from's input queue to to's.
func AttachThreadInput(ti ThreadInput, from, to uint32) *ThreadInputGuard {
	g := &ThreadInputGuard{ti: ti, from: from, to: to}
	switch {
	case from == 0 || to == 0:
	case from == to:
		g.same = true
	default:
		g.attached = ti.AttachThreadInput(from, to, true)
	}
	return g
}

// Attached reports whether the calling thread shares the target's input
// state, either through the link or because they are the same thread.
func (g *ThreadInputGuard) Attached() bool {
	return g.attached || g.same
}

// Release detaches the link. It is safe to call more than once.
func (g *ThreadInputGuard) Release() {
	if !g.attached {
		return
	}
	g.attached = false
	g.ti.AttachThreadInput(g.from, g.to, false)
}
