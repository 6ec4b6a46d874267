package metadata

import "fmt"

type descriptorIndex int32

// noDescriptor terminates the partition in both directions and marks an unset cursor
const noDescriptor descriptorIndex = -1

// blockDescriptor describes a single region of the pool. While it is in the partition,
// offset and extent locate the region and prev/next link it to its neighbours in
// memory order. While it is in the reserve, only its index matters.
type blockDescriptor struct {
	offset int
	extent int
	free   bool

	inPartition bool
	prev        descriptorIndex
	next        descriptorIndex
}

// descriptorArena owns every descriptor a pool will ever use. The partition is a
// doubly-linked list threaded through the slice by index and the reserve is a stack
// of spare indices, so moving a descriptor between the two never allocates.
type descriptorArena struct {
	descriptors []blockDescriptor
	head        descriptorIndex
	tail        descriptorIndex
	count       int

	reserve []descriptorIndex
}

func (a *descriptorArena) Init(reserveCount int) {
	a.descriptors = make([]blockDescriptor, reserveCount+1)
	a.reserve = make([]descriptorIndex, 0, reserveCount+1)
	a.head = noDescriptor
	a.tail = noDescriptor
	a.count = 0

	// Pushed in reverse so the lowest indices are handed out first
	for i := len(a.descriptors) - 1; i >= 0; i-- {
		a.pushReserve(descriptorIndex(i))
	}
}

func (a *descriptorArena) Destroy() {
	a.descriptors = nil
	a.reserve = nil
	a.head = noDescriptor
	a.tail = noDescriptor
	a.count = 0
}

func (a *descriptorArena) get(index descriptorIndex) *blockDescriptor {
	return &a.descriptors[index]
}

func (a *descriptorArena) next(index descriptorIndex) descriptorIndex {
	return a.descriptors[index].next
}

func (a *descriptorArena) prev(index descriptorIndex) descriptorIndex {
	return a.descriptors[index].prev
}

func (a *descriptorArena) reserveCount() int {
	return len(a.reserve)
}

func (a *descriptorArena) popReserve() (descriptorIndex, bool) {
	if len(a.reserve) == 0 {
		return noDescriptor, false
	}

	last := len(a.reserve) - 1
	index := a.reserve[last]
	a.reserve = a.reserve[:last]

	return index, true
}

func (a *descriptorArena) pushReserve(index descriptorIndex) {
	d := &a.descriptors[index]
	if d.inPartition {
		panic(fmt.Sprintf("descriptor %d is still in the partition", index))
	}

	*d = blockDescriptor{prev: noDescriptor, next: noDescriptor}
	a.reserve = append(a.reserve, index)
}

func (a *descriptorArena) pushTail(index descriptorIndex) {
	d := &a.descriptors[index]
	if d.inPartition {
		panic(fmt.Sprintf("descriptor %d is already in the partition", index))
	}

	d.inPartition = true
	d.prev = a.tail
	d.next = noDescriptor
	if a.tail != noDescriptor {
		a.descriptors[a.tail].next = index
	} else {
		a.head = index
	}
	a.tail = index
	a.count++
}

func (a *descriptorArena) insertAfter(at descriptorIndex, index descriptorIndex) {
	d := &a.descriptors[index]
	if d.inPartition {
		panic(fmt.Sprintf("descriptor %d is already in the partition", index))
	}

	atDesc := &a.descriptors[at]
	d.inPartition = true
	d.prev = at
	d.next = atDesc.next
	if atDesc.next != noDescriptor {
		a.descriptors[atDesc.next].prev = index
	} else {
		a.tail = index
	}
	atDesc.next = index
	a.count++
}

func (a *descriptorArena) remove(index descriptorIndex) {
	d := &a.descriptors[index]
	if !d.inPartition {
		panic(fmt.Sprintf("descriptor %d is not in the partition", index))
	}

	if d.prev != noDescriptor {
		a.descriptors[d.prev].next = d.next
	} else {
		a.head = d.next
	}

	if d.next != noDescriptor {
		a.descriptors[d.next].prev = d.prev
	} else {
		a.tail = d.prev
	}

	d.inPartition = false
	d.prev = noDescriptor
	d.next = noDescriptor
	a.count--
}
