package transition

import (
	"errors"
	"slices"
	"testing"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

var channels = []domain.Channel{domain.ChannelDine, domain.ChannelTakeaway, domain.ChannelDelivery}

func TestPath(t *testing.T) {
	tests := []struct {
		channel domain.Channel
		want    []domain.OrderStatus
	}{
		{
			channel: domain.ChannelDine,
			want: []domain.OrderStatus{
				domain.OrderStatusDraft, domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusFinished,
			},
		},
		{
			channel: domain.ChannelTakeaway,
			want: []domain.OrderStatus{
				domain.OrderStatusDraft, domain.OrderStatusPreparing, domain.OrderStatusReady,
				domain.OrderStatusPickedUp, domain.OrderStatusFinished,
			},
		},
		{
			channel: domain.ChannelDelivery,
			want: []domain.OrderStatus{
				domain.OrderStatusDraft, domain.OrderStatusPreparing, domain.OrderStatusReady,
				domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.OrderStatusFinished,
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			got, err := Path(tt.channel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestForwardGraphIsAcyclicAndEndsInFinished(t *testing.T) {
	for _, ch := range channels {
		t.Run(string(ch), func(t *testing.T) {
			seen := map[domain.OrderStatus]bool{}
			cur := domain.OrderStatusDraft
			for {
				if seen[cur] {
					t.Fatalf("cycle through %s", cur)
				}
				seen[cur] = true
				next, err := NextStatuses(ch, cur, false)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(next) == 0 {
					break
				}
				if len(next) != 1 {
					t.Fatalf("expected exactly one forward successor of %s, got %v", cur, next)
				}
				cur = next[0]
			}
			if cur != domain.OrderStatusFinished {
				t.Errorf("expected forward walk to end at FINISHED, ended at %s", cur)
			}
		})
	}
}

func TestDecide_UnprivilegedCancelIsAuthorizationFailure(t *testing.T) {
	for _, ch := range channels {
		statuses, err := Statuses(ch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, st := range statuses {
			t.Run(string(ch)+"/"+string(st), func(t *testing.T) {
				d, err := Decide(ch, st, domain.OrderStatusCancelled, false)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if d.Allowed {
					t.Fatal("expected cancel to be rejected")
				}
				if d.Reason != domain.RejectionAuthorization {
					t.Errorf("expected authorization reason, got %q", d.Reason)
				}
			})
		}
	}
}

func TestDecide_TerminalStatusesHaveNoExits(t *testing.T) {
	for _, ch := range channels {
		statuses, _ := Statuses(ch)
		for _, from := range []domain.OrderStatus{domain.OrderStatusFinished, domain.OrderStatusCancelled} {
			for _, to := range statuses {
				for _, privileged := range []bool{false, true} {
					d, err := Decide(ch, from, to, privileged)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if d.Allowed {
						t.Errorf("%s: %s -> %s allowed (privileged=%v)", ch, from, to, privileged)
					}
				}
			}
			next, _ := NextStatuses(ch, from, true)
			if len(next) != 0 {
				t.Errorf("%s: expected no next statuses from %s, got %v", ch, from, next)
			}
		}
	}
}

func TestDecide_OverrideRoundTrip(t *testing.T) {
	for _, ch := range channels {
		for from, back := range overrides[ch] {
			t.Run(string(ch)+"/"+string(from), func(t *testing.T) {
				d, err := Decide(ch, from, back, true)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !d.Allowed || !d.Override {
					t.Fatalf("expected override %s -> %s, got %+v", from, back, d)
				}

				d, err = Decide(ch, back, from, false)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !d.Allowed || d.Override {
					t.Fatalf("expected forward %s -> %s, got %+v", back, from, d)
				}
			})
		}
	}
}

func TestDecide_OverridesNeverSkipSteps(t *testing.T) {
	d, err := Decide(domain.ChannelDelivery, domain.OrderStatusDelivered, domain.OrderStatusReady, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected two-step backward move to be rejected")
	}
	if d.Reason != domain.RejectionState {
		t.Errorf("expected state reason, got %q", d.Reason)
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		channel      domain.Channel
		from, to     domain.OrderStatus
		privileged   bool
		wantAllowed  bool
		wantOverride bool
		wantReason   domain.RejectionReason
		wantNext     []domain.OrderStatus
	}{
		{
			name: "forward by user", channel: domain.ChannelDine,
			from: domain.OrderStatusDraft, to: domain.OrderStatusPreparing,
			wantAllowed: true,
			wantNext:    []domain.OrderStatus{domain.OrderStatusPreparing},
		},
		{
			name: "skip by user", channel: domain.ChannelDine,
			from: domain.OrderStatusDraft, to: domain.OrderStatusReady,
			wantReason: domain.RejectionState,
			wantNext:   []domain.OrderStatus{domain.OrderStatusPreparing},
		},
		{
			name: "backward by user", channel: domain.ChannelDine,
			from: domain.OrderStatusReady, to: domain.OrderStatusPreparing,
			wantReason: domain.RejectionAuthorization,
			wantNext:   []domain.OrderStatus{domain.OrderStatusFinished},
		},
		{
			name: "backward by manager", channel: domain.ChannelDine,
			from: domain.OrderStatusReady, to: domain.OrderStatusPreparing, privileged: true,
			wantAllowed: true, wantOverride: true,
			wantNext: []domain.OrderStatus{
				domain.OrderStatusFinished, domain.OrderStatusCancelled, domain.OrderStatusPreparing,
			},
		},
		{
			name: "cancel by manager", channel: domain.ChannelTakeaway,
			from: domain.OrderStatusPickedUp, to: domain.OrderStatusCancelled, privileged: true,
			wantAllowed: true,
			wantNext: []domain.OrderStatus{
				domain.OrderStatusFinished, domain.OrderStatusCancelled, domain.OrderStatusReady,
			},
		},
		{
			name: "draft has no override", channel: domain.ChannelDelivery,
			from: domain.OrderStatusDraft, to: domain.OrderStatusDraft, privileged: true,
			wantReason: domain.RejectionState,
			wantNext:   []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusCancelled},
		},
		{
			name: "status from another channel", channel: domain.ChannelDine,
			from: domain.OrderStatusReady, to: domain.OrderStatusOutForDelivery, privileged: true,
			wantReason: domain.RejectionState,
			wantNext: []domain.OrderStatus{
				domain.OrderStatusFinished, domain.OrderStatusCancelled, domain.OrderStatusPreparing,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.channel, tt.from, tt.to, tt.privileged)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Allowed != tt.wantAllowed {
				t.Errorf("expected allowed=%v, got %v", tt.wantAllowed, d.Allowed)
			}
			if d.Override != tt.wantOverride {
				t.Errorf("expected override=%v, got %v", tt.wantOverride, d.Override)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, d.Reason)
			}
			if !slices.Equal(d.Next, tt.wantNext) {
				t.Errorf("expected next %v, got %v", tt.wantNext, d.Next)
			}
		})
	}
}

func TestDecide_InputErrors(t *testing.T) {
	t.Run("unknown channel", func(t *testing.T) {
		_, err := Decide("DRIVE_THRU", domain.OrderStatusDraft, domain.OrderStatusPreparing, true)
		if !errors.Is(err, domain.ErrUnknownChannel) {
			t.Errorf("expected ErrUnknownChannel, got %v", err)
		}
	})

	t.Run("status outside channel graph", func(t *testing.T) {
		_, err := NextStatuses(domain.ChannelDine, domain.OrderStatusPickedUp, false)
		if !errors.Is(err, domain.ErrUnknownStatus) {
			t.Errorf("expected ErrUnknownStatus, got %v", err)
		}
	})
}

func TestDecide_IsDeterministic(t *testing.T) {
	for _, ch := range channels {
		statuses, _ := Statuses(ch)
		for _, from := range statuses {
			for _, to := range statuses {
				for _, privileged := range []bool{false, true} {
					a, errA := Decide(ch, from, to, privileged)
					b, errB := Decide(ch, from, to, privileged)
					if (errA == nil) != (errB == nil) || a.Allowed != b.Allowed || a.Reason != b.Reason ||
						a.Override != b.Override || !slices.Equal(a.Next, b.Next) {
						t.Fatalf("%s %s -> %s not deterministic", ch, from, to)
					}
				}
			}
		}
	}
}
