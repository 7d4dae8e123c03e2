package objstore

import (
	"testing"

	"deedles.dev/wlcompositor/wire"
	"github.com/stretchr/testify/assert"
)

type object struct {
	id      uint32
	deleted *[]uint32
}

func (obj *object) ID() uint32                         { return obj.id }
func (obj *object) SetID(id uint32)                    { obj.id = id }
func (obj *object) Delete()                            { *obj.deleted = append(*obj.deleted, obj.id) }
func (obj *object) Dispatch(*wire.MessageBuffer) error { return nil }
func (obj *object) MethodName(uint16) string           { return "" }

func TestStore(t *testing.T) {
	var deleted []uint32
	s := New(0xFF000000)

	client := &object{id: 3, deleted: &deleted}
	server := &object{deleted: &deleted}
	s.Add(client)
	s.Add(server)

	assert.Equal(t, uint32(0xFF000000), server.ID())
	assert.Same(t, client, s.Get(3))
	assert.Equal(t, 2, s.Len())

	s.Delete(3)
	assert.Nil(t, s.Get(3))
	assert.Equal(t, []uint32{3}, deleted)

	s.Add(&object{id: 5, deleted: &deleted})
	s.Clear()
	assert.Equal(t, []uint32{3, 0xFF000000, 5}, deleted)
	assert.Zero(t, s.Len())
}
