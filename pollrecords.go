package eventloop

// IOCondition is a bitmask of the POSIX poll conditions a PollFD can watch
// for or report. The numeric values match POLLIN/POLLOUT/POLLERR/POLLHUP so
// that the unix PollFunc backend can pass them straight through to the
// kernel without translation.
type IOCondition int16

const (
	IOIn   IOCondition = 0x0001
	IOOut  IOCondition = 0x0004
	IOErr  IOCondition = 0x0008
	IOHup  IOCondition = 0x0010
	IOPri  IOCondition = 0x0002
	IONval IOCondition = 0x0020
)

// PollFD describes a single file descriptor to watch, and the conditions a
// caller is interested in. Callers own the PollFD's identity: the poll
// record table keys registrations on the pointer itself, not the fd value,
// so the same fd may be registered more than once (by different sources)
// with independent PollFD records.
type PollFD struct {
	FD       int
	Events   IOCondition
	Revents  IOCondition
	priority int
}

// pollRecord is one entry in the priority-sorted poll record table. It
// exists separately from PollFD so that the table can be walked in priority
// order without mutating the caller's struct.
type pollRecord struct {
	fd       *PollFD
	priority int
	next     *pollRecord
}

// pollRecordTable is a priority-sorted singly linked list of poll records,
// the same shape GLib uses for its internal poll record list: insertion
// walks from the head until it finds the first record with a numerically
// greater priority value (that is, a lower priority), and links in before
// it, so records of equal priority keep their registration order.
// Lookup by *PollFD identity is O(n), which is fine: loops rarely watch more
// than a few dozen descriptors at a time.
type pollRecordTable struct {
	head *pollRecord
}

func (t *pollRecordTable) add(fd *PollFD, priority int) {
	fd.priority = priority
	rec := &pollRecord{fd: fd, priority: priority}

	if t.head == nil || t.head.priority > priority {
		rec.next = t.head
		t.head = rec
		return
	}
	cur := t.head
	for cur.next != nil && cur.next.priority <= priority {
		cur = cur.next
	}
	rec.next = cur.next
	cur.next = rec
}

func (t *pollRecordTable) remove(fd *PollFD) bool {
	var prev *pollRecord
	for cur := t.head; cur != nil; cur = cur.next {
		if cur.fd == fd {
			if prev == nil {
				t.head = cur.next
			} else {
				prev.next = cur.next
			}
			return true
		}
		prev = cur
	}
	return false
}

// snapshot returns every registered PollFD in priority order, suitable for
// handing to a PollFunc. The returned slice is safe for the caller to sort
// or mutate; it does not alias the table's internal linked list.
func (t *pollRecordTable) snapshot() []*PollFD {
	var out []*PollFD
	for cur := t.head; cur != nil; cur = cur.next {
		out = append(out, cur.fd)
	}
	return out
}
