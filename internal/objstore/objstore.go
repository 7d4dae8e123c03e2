// Package objstore keeps track of the protocol objects that exist on a
// single connection.
package objstore

import (
	"sort"

	"deedles.dev/wlcompositor/wire"
)

type Store struct {
	objects map[uint32]wire.Object
	nextID  uint32
}

// New returns an empty store that assigns IDs starting at start to
// objects added without one.
func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		nextID:  start,
	}
}

func (s *Store) Add(obj wire.Object) {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	s.objects[id] = obj
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

func (s *Store) Delete(id uint32) {
	obj := s.objects[id]
	delete(s.objects, id)
	if obj != nil {
		obj.Delete()
	}
}

// Clear deletes every object, newest first.
func (s *Store) Clear() {
	ids := make([]uint32, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	for _, id := range ids {
		s.Delete(id)
	}
}

func (s *Store) Len() int {
	return len(s.objects)
}
