package tile_test

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"panorama-viewer/internal/tile"
	"panorama-viewer/internal/tilecoord"
)

type fakePrimitive struct {
	refreshed int
	released  int
}

func (p *fakePrimitive) Refresh(*tile.Tile) { p.refreshed++ }
func (p *fakePrimitive) Release()           { p.released++ }

type fakeFactory struct {
	built int
	err   error
	last  *fakePrimitive
}

func (f *fakeFactory) CreatePrimitive(*tile.Tile) (tile.RenderPrimitive, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.built++
	f.last = &fakePrimitive{}
	return f.last, nil
}

func newTile() *tile.Tile {
	return tile.New(tilecoord.Coordinate{Level: 1, Column: 2, Row: 0}, 4, 4)
}

func imagePayload() *tile.ImagePayload {
	return &tile.ImagePayload{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}
}

func TestSetResourceOnce(t *testing.T) {
	tl := newTile()

	require.False(t, tl.HasResource(tile.SlotColor))
	require.NoError(t, tl.SetResource(tile.SlotColor, imagePayload()))
	require.True(t, tl.HasResource(tile.SlotColor))

	err := tl.SetResource(tile.SlotColor, imagePayload())
	require.ErrorIs(t, err, tile.ErrSlotAlreadySet)
}

func TestSetResourceRejectsWrongPayload(t *testing.T) {
	tl := newTile()

	require.Error(t, tl.SetResource(tile.SlotColor, &tile.DepthPayload{}))
	require.Error(t, tl.SetResource(tile.SlotDepth, imagePayload()))
}

func TestDepthAt(t *testing.T) {
	tl := newTile()

	if _, ok := tl.DepthAt(0, 0); ok {
		t.Fatal("DepthAt before depth set should report absence")
	}

	values := make([]float32, 16)
	values[2*4+3] = 7.5 // row 2, column 3
	require.NoError(t, tl.SetResource(tile.SlotDepth, &tile.DepthPayload{Width: 4, Height: 4, Values: values}))

	v, ok := tl.DepthAt(3, 2)
	require.True(t, ok)
	require.Equal(t, float32(7.5), v)

	if _, ok := tl.DepthAt(4, 0); ok {
		t.Fatal("DepthAt out of bounds should report absence")
	}
}

func TestDepthDimensionMismatch(t *testing.T) {
	tl := newTile()
	err := tl.SetResource(tile.SlotDepth, &tile.DepthPayload{Width: 4, Height: 4, Values: make([]float32, 3)})
	require.Error(t, err)
	require.False(t, tl.HasResource(tile.SlotDepth))
}

func TestPrimitiveMemoizedPerConsumer(t *testing.T) {
	tl := newTile()
	factory := &fakeFactory{}

	a := tile.NewConsumerID()
	b := tile.NewConsumerID()

	p1, err := tl.PrimitiveFor(a, factory)
	require.NoError(t, err)
	p2, err := tl.PrimitiveFor(a, factory)
	require.NoError(t, err)
	require.Same(t, p1, p2)
	require.Equal(t, 1, factory.built)

	p3, err := tl.PrimitiveFor(b, factory)
	require.NoError(t, err)
	require.NotSame(t, p1, p3)
	require.Equal(t, 2, factory.built)
}

func TestPrimitiveFactoryError(t *testing.T) {
	tl := newTile()
	boom := errors.New("boom")

	_, err := tl.PrimitiveFor(tile.NewConsumerID(), &fakeFactory{err: boom})
	require.ErrorIs(t, err, boom)
}

func TestSetResourceRefreshesPrimitives(t *testing.T) {
	tl := newTile()
	factory := &fakeFactory{}

	_, err := tl.PrimitiveFor(tile.NewConsumerID(), factory)
	require.NoError(t, err)
	require.Equal(t, 0, factory.last.refreshed)

	require.NoError(t, tl.SetResource(tile.SlotColor, imagePayload()))
	require.Equal(t, 1, factory.last.refreshed)
}

func TestDestroy(t *testing.T) {
	tl := newTile()
	factory := &fakeFactory{}

	require.NoError(t, tl.SetResource(tile.SlotColor, imagePayload()))
	_, err := tl.PrimitiveFor(tile.NewConsumerID(), factory)
	require.NoError(t, err)

	tl.Destroy()
	require.True(t, tl.Destroyed())
	require.Equal(t, 1, factory.last.released)

	// Every accessor fails or reports absence after destruction.
	require.ErrorIs(t, tl.SetResource(tile.SlotIntensity, imagePayload()), tile.ErrTileDestroyed)
	_, err = tl.Image(tile.SlotColor)
	require.ErrorIs(t, err, tile.ErrTileDestroyed)
	_, err = tl.PrimitiveFor(tile.NewConsumerID(), factory)
	require.ErrorIs(t, err, tile.ErrTileDestroyed)
	if _, ok := tl.DepthAt(0, 0); ok {
		t.Fatal("DepthAt after destroy should report absence")
	}

	// Destroy is idempotent.
	tl.Destroy()
	require.Equal(t, 1, factory.last.released)
}

func TestTransform(t *testing.T) {
	tl := newTile()
	tr := tl.Transform()

	az, pol := tl.Coordinate().SphericalCenter()
	require.Equal(t, az, tr.Yaw)
	require.Equal(t, pol, tr.Pitch)
	require.Greater(t, tr.AzimuthSpan, 0.0)
	require.Greater(t, tr.PolarSpan, 0.0)
}
