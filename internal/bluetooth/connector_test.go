package bluetooth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConnectorTestSuite struct {
	suite.Suite

	logger    *logrus.Logger
	adapter   *fakeAdapter
	connector *Connector

	mu          sync.Mutex
	discoveries []Discovery
	disconnects []Peripheral
	scanErrors  []error
}

func (s *ConnectorTestSuite) SetupTest() {
	s.logger, _ = test.NewNullLogger()
	s.adapter = newFakeAdapter()
	s.connector = NewConnector(s.adapter, s.logger, ConnectorOptions{ConnectTimeout: 50 * time.Millisecond})
	s.discoveries = nil
	s.disconnects = nil
	s.scanErrors = nil
	s.connector.SetHandlers(Handlers{
		OnDiscover: func(d Discovery) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.discoveries = append(s.discoveries, d)
		},
		OnScanError: func(_ uint64, err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.scanErrors = append(s.scanErrors, err)
		},
		OnDisconnect: func(p Peripheral) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.disconnects = append(s.disconnects, p)
		},
	})
}

func (s *ConnectorTestSuite) TearDownTest() {
	_ = s.connector.Close()
}

func (s *ConnectorTestSuite) waitScan() {
	select {
	case <-s.adapter.scanning:
	case <-time.After(time.Second):
		s.FailNow("scan did not start")
	}
}

func (s *ConnectorTestSuite) recorded() []Discovery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Discovery(nil), s.discoveries...)
}

func (s *ConnectorTestSuite) TestStartDiscoveryTagsGeneration() {
	gen, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	s.True(s.connector.Scanning())
	s.Equal(gen, s.connector.Generation())

	s.adapter.emit(0, ScanResult{Address: "AA:BB:CC:DD:EE:FF", LocalName: "Paddle", RSSI: -50})

	got := s.recorded()
	s.Require().Len(got, 1)
	s.Equal(gen, got[0].Generation)
	s.Equal("Paddle", got[0].Name)
	s.Equal(int16(-50), got[0].RSSI)
}

func (s *ConnectorTestSuite) TestRestartDropsResultsFromPreviousSearch() {
	first, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	second, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()
	s.Greater(second, first)

	s.adapter.emit(0, ScanResult{Address: "11:11:11:11:11:11", LocalName: "stale"})
	s.adapter.emit(1, ScanResult{Address: "22:22:22:22:22:22", LocalName: "fresh"})

	got := s.recorded()
	s.Require().Len(got, 1)
	s.Equal("fresh", got[0].Name)
	s.Equal(second, got[0].Generation)
}

func (s *ConnectorTestSuite) TestRestartWaitsForPreviousScan() {
	s.adapter.stopDelay = 50 * time.Millisecond

	_, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	second, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	s.True(s.connector.Scanning())
	s.mu.Lock()
	s.Empty(s.scanErrors, "the new scan does not overlap the stopping one")
	s.mu.Unlock()

	s.adapter.emit(1, ScanResult{Address: "22:22:22:22:22:22", LocalName: "fresh"})
	got := s.recorded()
	s.Require().Len(got, 1)
	s.Equal(second, got[0].Generation)
}

func (s *ConnectorTestSuite) TestSupersededSearchNeverScans() {
	s.adapter.stopDelay = 50 * time.Millisecond

	_, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	_, err = s.connector.StartDiscovery()
	s.Require().NoError(err)
	_, err = s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	s.Equal(2, s.adapter.scanCount(), "the middle search was cancelled before its scan began")
	s.mu.Lock()
	s.Empty(s.scanErrors)
	s.mu.Unlock()
}

func (s *ConnectorTestSuite) TestStopDiscoveryIsIdempotent() {
	s.NotPanics(func() { s.connector.StopDiscovery() })
	s.False(s.connector.Scanning())
	s.Equal(uint64(0), s.connector.Generation())

	_, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	s.connector.StopDiscovery()
	s.connector.StopDiscovery()
	s.False(s.connector.Scanning())

	s.adapter.emit(0, ScanResult{Address: "AA:BB:CC:DD:EE:FF", LocalName: "late"})
	s.Empty(s.recorded(), "results after stop are dropped")
}

func (s *ConnectorTestSuite) TestStartDiscoveryAdapterUnavailable() {
	s.adapter.enableErr = errRadioOff

	_, err := s.connector.StartDiscovery()
	s.ErrorIs(err, errRadioOff)
	s.False(s.connector.Scanning())
}

func (s *ConnectorTestSuite) TestScanFailureReported() {
	s.adapter.scanErr = errRadioOff

	_, err := s.connector.StartDiscovery()
	s.Require().NoError(err)
	s.waitScan()

	s.Eventually(func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.scanErrors) == 1
	}, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool { return !s.connector.Scanning() }, time.Second, 5*time.Millisecond)
}

func (s *ConnectorTestSuite) TestConnectSuccess() {
	p := Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "Paddle"}

	got, err := s.connector.Connect(context.Background(), p)
	s.Require().NoError(err)
	s.Equal(StateConnected, got.State)

	connected, ok := s.connector.ConnectedPeripheral()
	s.Require().True(ok)
	s.Equal("Paddle", connected.Name)
	s.False(s.connector.Pending())
}

func (s *ConnectorTestSuite) TestConcurrentConnectRejected() {
	release := make(chan struct{})
	started := make(chan struct{})
	s.adapter.connect = func(ctx context.Context, _ string) (Link, error) {
		close(started)
		select {
		case <-release:
			return &fakeLink{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.connector.opts.ConnectTimeout = time.Second

	done := make(chan error, 1)
	go func() {
		_, err := s.connector.Connect(context.Background(), Peripheral{Address: "first"})
		done <- err
	}()
	<-started
	s.True(s.connector.Pending())

	_, err := s.connector.Connect(context.Background(), Peripheral{Address: "second"})
	s.ErrorIs(err, ErrConnectInProgress)

	close(release)
	s.NoError(<-done, "pending attempt is unaffected by the rejected one")

	connected, ok := s.connector.ConnectedPeripheral()
	s.Require().True(ok)
	s.Equal("first", connected.Address)
}

func (s *ConnectorTestSuite) TestConnectTimesOut() {
	s.adapter.connect = func(ctx context.Context, _ string) (Link, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err := s.connector.Connect(context.Background(), Peripheral{Address: "AA"})
	s.ErrorIs(err, ErrConnectTimeout)
	s.Less(time.Since(start), time.Second)
	s.False(s.connector.Pending(), "timed-out attempt no longer blocks new ones")

	_, ok := s.connector.ConnectedPeripheral()
	s.False(ok)
}

func (s *ConnectorTestSuite) TestConnectCancelledIsNotTimeout() {
	s.adapter.connect = func(ctx context.Context, _ string) (Link, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.connector.Connect(ctx, Peripheral{Address: "AA"})
	s.ErrorIs(err, context.Canceled)
	s.False(errors.Is(err, ErrConnectTimeout))
}

func (s *ConnectorTestSuite) TestConnectReplacesPreviousLink() {
	_, err := s.connector.Connect(context.Background(), Peripheral{Address: "one"})
	s.Require().NoError(err)
	first := s.adapter.latestLink()

	_, err = s.connector.Connect(context.Background(), Peripheral{Address: "two"})
	s.Require().NoError(err)

	s.True(first.isDisconnected())
	connected, _ := s.connector.ConnectedPeripheral()
	s.Equal("two", connected.Address)

	// A late drop of the replaced link must not clear the new connection.
	first.SimulateDrop()
	_, ok := s.connector.ConnectedPeripheral()
	s.True(ok)
}

func (s *ConnectorTestSuite) TestLinkLostNotifies() {
	_, err := s.connector.Connect(context.Background(), Peripheral{Address: "AA", Name: "Paddle"})
	s.Require().NoError(err)

	s.adapter.latestLink().SimulateDrop()

	_, ok := s.connector.ConnectedPeripheral()
	s.False(ok)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().Len(s.disconnects, 1)
	s.Equal(StateDisconnected, s.disconnects[0].State)
}

func (s *ConnectorTestSuite) TestDisconnect() {
	s.NoError(s.connector.Disconnect(), "no connection is fine")

	_, err := s.connector.Connect(context.Background(), Peripheral{Address: "AA"})
	s.Require().NoError(err)
	link := s.adapter.latestLink()

	s.Require().NoError(s.connector.Disconnect())
	s.True(link.isDisconnected())
	_, ok := s.connector.ConnectedPeripheral()
	s.False(ok)
}

func TestConnectorTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectorTestSuite))
}

func TestNewConnectorDefaults(t *testing.T) {
	c := NewConnector(newFakeAdapter(), nil, ConnectorOptions{})
	require.NotNil(t, c.logger)
	assert.Equal(t, DefaultConnectorOptions().ConnectTimeout, c.opts.ConnectTimeout)
}
