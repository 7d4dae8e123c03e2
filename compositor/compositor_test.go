package compositor

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfaceIDsNotReused(t *testing.T) {
	c := New()
	s1 := c.CreateSurface(nil)
	s1.Destroy()
	s2 := c.CreateSurface(nil)

	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.Nil(t, c.Surface(s1.ID()))
	assert.Same(t, s2, c.Surface(s2.ID()))
	assert.Equal(t, []*Surface{s2}, c.Surfaces())
}

func TestSurfaceCreatedHook(t *testing.T) {
	c := New()

	var created []*Surface
	c.SurfaceCreated = func(s *Surface) {
		assert.False(t, s.IsInitialized())
		created = append(created, s)
	}

	var committed int
	c.SurfaceCommitted = func(*Surface) { committed++ }

	s := c.CreateSurface(nil)
	assert.Equal(t, []*Surface{s}, created)
	assert.True(t, s.IsInitialized())

	require.NoError(t, s.Commit())
	assert.Equal(t, 1, committed)
}

func TestClientClose(t *testing.T) {
	c := New()
	client := c.NewClient()
	other := c.NewClient()
	assert.Equal(t, []*Client{client, other}, c.Clients())

	parent := c.CreateSurface(client)
	child := c.CreateSurface(client)
	_, err := c.CreateSubsurface(child, parent)
	require.NoError(t, err)
	keep := c.CreateSurface(other)

	buf := newFakeBuffer(4, 4)
	parent.Attach(buf, 0, 0)
	require.NoError(t, parent.Commit())

	client.Close()
	assert.True(t, parent.IsDestroyed())
	assert.True(t, child.IsDestroyed())
	assert.False(t, keep.IsDestroyed())
	assert.Equal(t, 1, buf.released)
	assert.Nil(t, c.Client(client.ID()))
	assert.Equal(t, []*Surface{keep}, c.Surfaces())
	assert.Empty(t, client.Surfaces())
}

func TestClientFailed(t *testing.T) {
	c := New()
	client := c.NewClient()

	var failures []*ProtocolError
	client.Failed = func(err *ProtocolError) { failures = append(failures, err) }

	s := c.CreateSurface(client)
	require.Error(t, s.SetBufferScale(0))
	require.Error(t, s.SetBufferTransform(-1))

	require.Len(t, failures, 1)
	assert.Equal(t, SurfaceErrorInvalidScale, client.Err().Code)
}

func TestCompositorClose(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	v := s.NewView()

	buf := newFakeBuffer(4, 4)
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())
	v.Advance()

	c.Close()
	assert.True(t, s.IsDestroyed())
	assert.Zero(t, buf.released, "released while view holds it")

	v.Release()
	c.DrainReleases()
	assert.Equal(t, 1, buf.released)
}

// A client attaches a 64x64 buffer, damages all of it, asks for a frame
// callback and commits, then composition shows it.
func TestScenarioSingleSurface(t *testing.T) {
	c := New()
	client := c.NewClient()
	s := c.CreateSurface(client)
	v := s.NewView()

	var log []string
	buf := newFakeBuffer(64, 64)
	s.Attach(buf, 0, 0)
	s.DamageSurface(0, 0, 64, 64)
	s.Frame(&fakeCallback{name: "frame", log: &log})
	require.NoError(t, s.Commit())

	require.True(t, v.Advance())
	assert.Equal(t, image.Rect(0, 0, 64, 64), s.TakeDamage().Bounds())
	v.Buffer().SetDisplayed()
	c.EndFrame(1000)

	assert.Equal(t, []string{"frame"}, log)
	assert.Zero(t, buf.released)
	assert.Nil(t, client.Err())
}

// A parent with a synchronized child positioned at (10, 10). The child
// only appears, at its new position, once the parent commits.
func TestScenarioParentChild(t *testing.T) {
	c := New()
	client := c.NewClient()
	parent := c.CreateSurface(client)
	child := c.CreateSurface(client)
	sub, err := c.CreateSubsurface(child, parent)
	require.NoError(t, err)

	parent.Attach(newFakeBuffer(100, 100), 0, 0)
	child.Attach(newFakeBuffer(20, 20), 0, 0)
	sub.SetPosition(10, 10)
	require.NoError(t, child.Commit())

	assert.False(t, child.HasContent())
	assert.Equal(t, image.Point{}, sub.Position())

	require.NoError(t, parent.Commit())
	assert.True(t, parent.HasContent())
	assert.True(t, child.HasContent())
	assert.Equal(t, image.Pt(10, 10), sub.Position())
	assert.Equal(t, []*Surface{parent, child}, parent.Stack())
}
