package compositor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReleasedBySurfaceLast(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	v := s.NewView()

	a := newFakeBuffer(4, 4)
	s.Attach(a, 0, 0)
	require.NoError(t, s.Commit())
	require.True(t, v.Advance())
	buf := v.Buffer()

	v.DiscardBuffer()
	assert.Equal(t, 1, c.PendingReleases())
	c.DrainReleases()
	assert.Zero(t, a.released, "released while still current")
	assert.True(t, buf.IsRegistered())

	s.Attach(newFakeBuffer(4, 4), 0, 0)
	require.NoError(t, s.Commit())
	assert.Equal(t, 1, a.released)
	assert.False(t, buf.IsRegistered())
}

func TestBufferReleasedByCompositionLast(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	v := s.NewView()

	a := newFakeBuffer(4, 4)
	s.Attach(a, 0, 0)
	require.NoError(t, s.Commit())
	require.True(t, v.Advance())

	b := newFakeBuffer(4, 4)
	s.Attach(b, 0, 0)
	require.NoError(t, s.Commit())
	assert.Zero(t, a.released, "released while still displayed")

	require.True(t, v.Advance())
	assert.Same(t, b, v.Buffer().Resource())
	assert.Zero(t, a.released, "release not deferred")

	c.EndFrame(0)
	assert.Equal(t, 1, a.released)
	assert.Zero(t, b.released)
	assert.False(t, v.Advance())
}

func TestReleaseWithoutAcquire(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	s.Attach(newFakeBuffer(4, 4), 0, 0)
	require.NoError(t, s.Commit())

	assert.Panics(t, func() { s.Buffer().Release() })
}

func TestBufferDamage(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	s.Attach(newFakeBuffer(8, 8), 0, 0)
	s.DamageBuffer(1, 1, 2, 2)
	require.NoError(t, s.Commit())

	buf := s.Buffer()
	assert.False(t, buf.IsDisplayed())
	assert.Equal(t, 4, buf.Damage().Dx()*buf.Damage().Dy())

	buf.SetDisplayed()
	assert.True(t, buf.IsDisplayed())
	assert.True(t, buf.Damage().Empty())
}

func TestBufferTexture(t *testing.T) {
	gfx := newFakeGraphics()
	c := New(WithGraphicsIntegration(gfx))
	s := c.CreateSurface(nil)

	a := newFakeBuffer(4, 4)
	s.Attach(a, 0, 0)
	require.NoError(t, s.Commit())

	tex, err := s.Buffer().Texture()
	require.NoError(t, err)
	again, err := s.Buffer().Texture()
	require.NoError(t, err)
	assert.Equal(t, tex, again)
	assert.Same(t, a, gfx.live[tex])

	s.Attach(nil, 0, 0)
	require.NoError(t, s.Commit())
	assert.Empty(t, gfx.live)
	assert.Equal(t, []TextureID{tex}, gfx.destroyed)
}

func TestBufferTextureErrors(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	s.Attach(newFakeBuffer(4, 4), 0, 0)
	require.NoError(t, s.Commit())

	_, err := s.Buffer().Texture()
	assert.ErrorIs(t, err, ErrNoGraphicsIntegration)

	gfx := newFakeGraphics()
	gfx.err = errors.New("out of memory")
	c = New(WithGraphicsIntegration(gfx))
	s = c.CreateSurface(nil)
	s.Attach(newFakeBuffer(4, 4), 0, 0)
	require.NoError(t, s.Commit())

	_, err = s.Buffer().Texture()
	assert.ErrorIs(t, err, gfx.err)
}

func TestViewSurfaceDestroyed(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	v := s.NewView()

	a := newFakeBuffer(4, 4)
	s.Attach(a, 0, 0)
	require.NoError(t, s.Commit())
	require.True(t, v.Advance())

	var notified bool
	v.SurfaceDestroyed = func() { notified = true }
	s.Destroy()

	assert.True(t, notified)
	assert.Nil(t, v.Surface())
	assert.Zero(t, a.released, "buffer released while view holds it")

	v.Release()
	c.DrainReleases()
	assert.Equal(t, 1, a.released)
}

func TestViewRelease(t *testing.T) {
	c := New()
	s := c.CreateSurface(nil)
	v := s.NewView()
	require.Len(t, s.Views(), 1)

	v.Release()
	assert.Empty(t, s.Views())
	assert.Nil(t, v.Surface())
	v.Release()
}
