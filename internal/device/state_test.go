package device

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctrlX = netip.MustParseAddrPort("127.0.0.1:40001")
	ctrlY = netip.MustParseAddrPort("127.0.0.1:40002")
)

func TestNew_Defaults(t *testing.T) {
	s := New(DefaultTemperatureC)
	st := s.Snapshot()

	assert.False(t, st.HeaterOn)
	assert.False(t, st.Reserved)
	assert.Empty(t, st.Owner)
	assert.Equal(t, uint16(21), st.TemperatureC)
}

func TestSetHeater_Idempotent(t *testing.T) {
	s := New(DefaultTemperatureC)

	s.SetHeater(true)
	s.SetHeater(true)
	assert.True(t, s.Snapshot().HeaterOn)

	s.SetHeater(false)
	s.SetHeater(false)
	assert.False(t, s.Snapshot().HeaterOn)
}

func TestReserve_FirstWins(t *testing.T) {
	s := New(DefaultTemperatureC)

	require.NoError(t, s.Reserve(ctrlX))
	require.NoError(t, s.Reserve(ctrlX), "re-reserve by the owner is a no-op")

	err := s.Reserve(ctrlY)
	require.ErrorIs(t, err, ErrAlreadyReserved)

	owner, ok := s.Owner()
	require.True(t, ok)
	assert.Equal(t, ctrlX, owner)
	assert.Equal(t, ctrlX.String(), s.Snapshot().Owner)
}

func TestReserve_TransferPolicy(t *testing.T) {
	s := New(DefaultTemperatureC, WithReservePolicy(ReserveTransfer))

	require.NoError(t, s.Reserve(ctrlX))
	require.NoError(t, s.Reserve(ctrlY))

	owner, ok := s.Owner()
	require.True(t, ok)
	assert.Equal(t, ctrlY, owner)
}

func TestRelease_OwnerOnly(t *testing.T) {
	s := New(DefaultTemperatureC)
	require.NoError(t, s.Reserve(ctrlX))

	require.ErrorIs(t, s.Release(ctrlY), ErrNotOwner)
	owner, ok := s.Owner()
	require.True(t, ok)
	assert.Equal(t, ctrlX, owner)

	require.NoError(t, s.Release(ctrlX))
	_, ok = s.Owner()
	assert.False(t, ok)

	// duplicated release after the reservation is gone
	require.ErrorIs(t, s.Release(ctrlX), ErrNotOwner)
}

func TestRelease_AnyPolicy(t *testing.T) {
	s := New(DefaultTemperatureC, WithReleasePolicy(ReleaseAny))
	require.NoError(t, s.Reserve(ctrlX))

	require.NoError(t, s.Release(ctrlY))
	_, ok := s.Owner()
	assert.False(t, ok)

	require.NoError(t, s.Release(ctrlY), "releasing an unreserved device is a no-op")
}

func TestParsePolicies(t *testing.T) {
	rp, err := ParseReservePolicy("transfer")
	require.NoError(t, err)
	assert.Equal(t, ReserveTransfer, rp)

	lp, err := ParseReleasePolicy("any")
	require.NoError(t, err)
	assert.Equal(t, ReleaseAny, lp)

	_, err = ParseReservePolicy("latest")
	require.ErrorIs(t, err, ErrUnknownPolicy)
	_, err = ParseReleasePolicy("")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestSnapshot_ConcurrentReaders(t *testing.T) {
	s := New(DefaultTemperatureC)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.SetHeater(i%2 == 0)
			if i%2 == 0 {
				_ = s.Reserve(ctrlX)
			} else {
				_ = s.Release(ctrlX)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			st := s.Snapshot()
			if st.Reserved != (st.Owner != "") {
				t.Errorf("torn snapshot: %+v", st)
				return
			}
		}
	}()
	wg.Wait()
}
