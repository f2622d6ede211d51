package player

import (
	"context"
	"errors"
	"testing"

	"cassette/catalog"
	"cassette/core/collection"
	"cassette/core/gate"
	"cassette/core/wallet"
	"cassette/model"
	"cassette/store"

	"github.com/shopspring/decimal"
)

const testSecret = "1234"

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	mk := func(id int64, title, price string) *model.Track {
		track, err := model.NewTrack(id, title, "Artist", decimal.RequireFromString(price), "0xpayee")
		if err != nil {
			t.Fatalf("NewTrack: %v", err)
		}
		track.AudioURL = "https://cdn.example/" + title + ".mp3"
		return track
	}
	idx, err := catalog.NewIndex([]*model.Track{
		mk(1, "First", "0.001"),
		mk(2, "Second", "0.002"),
		mk(3, "Third", "0.0005"),
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

// newTestCoordinator wires a coordinator over a zero-latency simulated
// wallet and a no-op transport.
func newTestCoordinator(t *testing.T, balance string) (*Coordinator, *wallet.Session) {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cat := testIndex(t)

	provider := wallet.NewSimProvider("0xtest", decimal.RequireFromString(balance), 0, 0)
	session := wallet.NewSession(provider)
	paymentGate := gate.NewPaymentGate(session, cat)

	policy, err := gate.NewConfirmationPolicy(ctx, s, testSecret)
	if err != nil {
		t.Fatalf("NewConfirmationPolicy: %v", err)
	}

	collections, err := collection.NewManager(ctx, s, cat)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	controller := NewController(NewNullTransport())
	return NewCoordinator(cat, session, paymentGate, policy, controller, collections, nil), session
}

func connect(t *testing.T, c *Coordinator) {
	t.Helper()
	if _, err := c.ConnectWallet(context.Background()); err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
}

func TestRequestPlayNotConnected(t *testing.T) {
	c, _ := newTestCoordinator(t, "0.01")

	_, err := c.RequestPlay(context.Background(), 1)
	if !errors.Is(err, model.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if got := c.Playback().State; got != model.PlayerIdle {
		t.Errorf("playback must stay idle, got %s", got)
	}
}

func TestRequestPlayUnknownTrack(t *testing.T) {
	c, _ := newTestCoordinator(t, "0.01")
	connect(t, c)

	if _, err := c.RequestPlay(context.Background(), 999); !errors.Is(err, model.ErrUnknownTrack) {
		t.Fatalf("expected ErrUnknownTrack, got %v", err)
	}
}

func TestAutoPayChargesAndPlays(t *testing.T) {
	c, session := newTestCoordinator(t, "0.0015")
	connect(t, c)
	ctx := context.Background()

	res, err := c.RequestPlay(ctx, 1)
	if err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	if res.Pending {
		t.Fatal("auto-pay request must not park")
	}
	if res.Receipt == nil || res.Receipt.TrackID != 1 {
		t.Fatalf("bad receipt: %+v", res.Receipt)
	}
	if !res.Receipt.Amount.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("expected amount 0.001, got %s", res.Receipt.Amount)
	}

	pb := c.Playback()
	if pb.State != model.PlayerPlaying || pb.CurrentTrackID == nil || *pb.CurrentTrackID != 1 {
		t.Errorf("expected playing track 1, got %+v", pb)
	}
	if !session.State().BalanceAmount.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("expected balance 0.0005, got %s", session.State().BalanceAmount)
	}
	if hist := c.Collections().History(); len(hist) != 1 || hist[0].TrackID != 1 {
		t.Errorf("expected one history entry for track 1, got %+v", hist)
	}
	track, _ := c.Catalog().Get(1)
	if track.PlayCount != 1 {
		t.Errorf("expected play count 1, got %d", track.PlayCount)
	}
}

func TestInsufficientFundsLeavesEverythingUnchanged(t *testing.T) {
	c, session := newTestCoordinator(t, "0.0015")
	connect(t, c)
	ctx := context.Background()

	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	balanceBefore := session.State().BalanceAmount
	histBefore := len(c.Collections().History())

	// 0.002 against the remaining 0.0005 must fail cleanly.
	_, err := c.RequestPlay(ctx, 2)
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	pb := c.Playback()
	if pb.State != model.PlayerPlaying || pb.CurrentTrackID == nil || *pb.CurrentTrackID != 1 {
		t.Errorf("track 1 must keep playing, got %+v", pb)
	}
	if !session.State().BalanceAmount.Equal(balanceBefore) {
		t.Errorf("balance changed: %s vs %s", session.State().BalanceAmount, balanceBefore)
	}
	if got := len(c.Collections().History()); got != histBefore {
		t.Errorf("history changed: %d vs %d", got, histBefore)
	}
}

func TestManualConfirmationFlow(t *testing.T) {
	c, session := newTestCoordinator(t, "0.01")
	connect(t, c)
	ctx := context.Background()

	if err := c.SetAutoPay(ctx, false); err != nil {
		t.Fatalf("SetAutoPay: %v", err)
	}

	res, err := c.RequestPlay(ctx, 2)
	if err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	if !res.Pending {
		t.Fatal("request must park with auto-pay off")
	}
	if c.Playback().State != model.PlayerIdle {
		t.Error("nothing plays while confirmation is pending")
	}

	// A wrong secret keeps the request parked and charges nothing.
	if _, err := c.ConfirmPending(ctx, "wrong"); !errors.Is(err, model.ErrConfirmationFailed) {
		t.Fatalf("expected ErrConfirmationFailed, got %v", err)
	}
	if pending := c.PendingConfirmation(); pending == nil || pending.TrackID != 2 {
		t.Fatalf("pending request must survive a failed attempt, got %+v", pending)
	}
	if !session.State().BalanceAmount.Equal(decimal.RequireFromString("0.01")) {
		t.Error("failed confirmation must not charge")
	}

	res, err = c.ConfirmPending(ctx, testSecret)
	if err != nil {
		t.Fatalf("ConfirmPending: %v", err)
	}
	if res.Receipt == nil || res.Receipt.TrackID != 2 {
		t.Fatalf("bad receipt: %+v", res.Receipt)
	}
	if c.Playback().State != model.PlayerPlaying {
		t.Error("confirmed request must start playback")
	}
	if !session.State().BalanceAmount.Equal(decimal.RequireFromString("0.008")) {
		t.Errorf("expected balance 0.008, got %s", session.State().BalanceAmount)
	}
	if c.PendingConfirmation() != nil {
		t.Error("pending must clear on success")
	}
}

func TestSecondRequestWhilePendingIsRejected(t *testing.T) {
	c, _ := newTestCoordinator(t, "0.01")
	connect(t, c)
	ctx := context.Background()

	if err := c.SetAutoPay(ctx, false); err != nil {
		t.Fatalf("SetAutoPay: %v", err)
	}
	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}

	if _, err := c.RequestPlay(ctx, 2); !errors.Is(err, model.ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}
	if pending := c.PendingConfirmation(); pending == nil || pending.TrackID != 1 {
		t.Errorf("pending target must not be overwritten, got %+v", pending)
	}
}

func TestCancelPendingChargesNothing(t *testing.T) {
	c, session := newTestCoordinator(t, "0.01")
	connect(t, c)
	ctx := context.Background()

	c.SetAutoPay(ctx, false)
	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}

	if err := c.CancelPending(); err != nil {
		t.Fatalf("CancelPending: %v", err)
	}
	if c.PendingConfirmation() != nil {
		t.Error("pending must clear on cancel")
	}
	if !session.State().BalanceAmount.Equal(decimal.RequireFromString("0.01")) {
		t.Error("cancel must not charge")
	}
	if err := c.CancelPending(); !errors.Is(err, model.ErrNoPendingConfirmation) {
		t.Errorf("expected ErrNoPendingConfirmation, got %v", err)
	}
}

func TestNextWrapsAndCharges(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)
	ctx := context.Background()

	if _, err := c.RequestPlay(ctx, 3); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}

	res, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if res.Receipt == nil || res.Receipt.TrackID != 1 {
		t.Errorf("expected wraparound to track 1, got %+v", res.Receipt)
	}
	// Every track change is a paid play.
	if hist := c.Collections().History(); len(hist) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(hist))
	}
}

func TestNextWithoutCurrentTrack(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)

	if _, err := c.Next(context.Background()); !errors.Is(err, model.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", err)
	}
}

func TestPreviousWrapsBackward(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)
	ctx := context.Background()

	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	res, err := c.Previous(ctx)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if res.Receipt == nil || res.Receipt.TrackID != 3 {
		t.Errorf("expected wraparound to track 3, got %+v", res.Receipt)
	}
}

func TestTogglePlayPause(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)
	ctx := context.Background()

	if err := c.TogglePlayPause(); !errors.Is(err, model.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying while idle, got %v", err)
	}

	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	if err := c.TogglePlayPause(); err != nil {
		t.Fatalf("TogglePlayPause: %v", err)
	}
	if pb := c.Playback(); pb.State != model.PlayerPaused || pb.IsPlaying {
		t.Errorf("expected paused, got %+v", pb)
	}
	if err := c.TogglePlayPause(); err != nil {
		t.Fatalf("TogglePlayPause: %v", err)
	}
	if pb := c.Playback(); pb.State != model.PlayerPlaying || !pb.IsPlaying {
		t.Errorf("expected playing, got %+v", pb)
	}
}

func TestStopDropsToIdle(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)

	if _, err := c.RequestPlay(context.Background(), 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	c.Stop()
	pb := c.Playback()
	if pb.State != model.PlayerIdle || pb.CurrentTrackID != nil {
		t.Errorf("expected idle with no current track, got %+v", pb)
	}
}

func TestDisconnectBlocksFutureChanges(t *testing.T) {
	c, _ := newTestCoordinator(t, "1")
	connect(t, c)
	ctx := context.Background()

	if _, err := c.RequestPlay(ctx, 1); err != nil {
		t.Fatalf("RequestPlay: %v", err)
	}
	c.DisconnectWallet()

	// The already-paid track keeps playing.
	if pb := c.Playback(); pb.State != model.PlayerPlaying {
		t.Errorf("current track must keep playing, got %+v", pb)
	}
	if _, err := c.Next(ctx); !errors.Is(err, model.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
