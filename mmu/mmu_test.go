package mmu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMmu(cacheEnabled bool) *Mmu {
	return New(cacheEnabled, rand.New(rand.NewSource(42)))
}

func TestTranslateRequiresMapping(t *testing.T) {
	m := newTestMmu(false)
	_, err := m.Translate(0x1000, PermRead)
	require.ErrorIs(t, err, ErrAddrTranslation)
}

func TestMapPageThenTranslate(t *testing.T) {
	m := newTestMmu(false)
	require.NoError(t, m.MapPage(0x10000, PermRead|PermWrite|PermExec))

	paddr, err := m.Translate(0x10004, PermRead)
	require.NoError(t, err)
	require.NotZero(t, paddr)
}

func TestTranslateDeniesMissingPermission(t *testing.T) {
	m := newTestMmu(false)
	require.NoError(t, m.MapPage(0x10000, PermRead))
	_, err := m.Translate(0x10000, PermWrite)
	require.ErrorIs(t, err, ErrPermission)
}

func TestMapPageOverlapFails(t *testing.T) {
	m := newTestMmu(false)
	require.NoError(t, m.MapPage(0x10000, PermRead))
	err := m.MapPage(0x10000, PermRead)
	require.ErrorIs(t, err, ErrMemOverlap)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	m := newTestMmu(false)
	require.NoError(t, m.MapPage(0x20000, PermRead|PermWrite))
	require.NoError(t, m.Write(0x20000, []byte{0xde, 0xad, 0xbe, 0xef}))

	data, hit, err := m.Read(0x20000, 4)
	require.NoError(t, err)
	require.False(t, hit, "cache disabled: never reports a hit")
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)
}

func TestCacheHitAfterFirstMiss(t *testing.T) {
	m := newTestMmu(true)
	require.NoError(t, m.MapPage(0x30000, PermRead|PermWrite))
	require.NoError(t, m.Write(0x30000, []byte{1, 2, 3, 4}))

	_, hit1, err := m.Read(0x30000, 4)
	require.NoError(t, err)
	require.False(t, hit1)

	_, hit2, err := m.Read(0x30000, 4)
	require.NoError(t, err)
	require.True(t, hit2)
}

func TestWriteInvalidatesCachedLine(t *testing.T) {
	m := newTestMmu(true)
	require.NoError(t, m.MapPage(0x40000, PermRead|PermWrite))
	require.NoError(t, m.Write(0x40000, []byte{1, 2, 3, 4}))
	_, _, err := m.Read(0x40000, 4)
	require.NoError(t, err)

	require.NoError(t, m.Write(0x40000, []byte{9, 9, 9, 9}))
	data, hit, err := m.Read(0x40000, 4)
	require.NoError(t, err)
	require.False(t, hit, "write-through invalidates the line; the next read is a miss")
	require.Equal(t, []byte{9, 9, 9, 9}, data)
}

func TestAddrInCacheIsPeekOnly(t *testing.T) {
	m := newTestMmu(true)
	require.NoError(t, m.MapPage(0x50000, PermRead|PermWrite))
	paddr, err := m.Translate(0x50000, PermRead)
	require.NoError(t, err)

	require.False(t, m.AddrInCache(paddr))
	require.False(t, m.AddrInCache(paddr), "peeking must not fill the cache")

	_, _, err = m.Read(0x50000, 4)
	require.NoError(t, err)
	require.True(t, m.AddrInCache(paddr))
}

func TestFlushCacheResetsLines(t *testing.T) {
	m := newTestMmu(true)
	require.NoError(t, m.MapPage(0x60000, PermRead|PermWrite))
	require.NoError(t, m.Write(0x60000, []byte{1, 2, 3, 4}))
	_, _, err := m.Read(0x60000, 4)
	require.NoError(t, err)

	m.FlushCache()

	_, hit, err := m.Read(0x60000, 4)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestDistinctPagesNeverShareBacking(t *testing.T) {
	m := newTestMmu(false)
	require.NoError(t, m.MapPage(0x70000, PermRead))
	require.NoError(t, m.MapPage(0x71000, PermRead))

	p1, err := m.Translate(0x70000, PermRead)
	require.NoError(t, err)
	p2, err := m.Translate(0x71000, PermRead)
	require.NoError(t, err)
	require.NotEqual(t, p1&^0xfff, p2&^0xfff)
}
