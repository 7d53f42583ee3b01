package service

import (
	"context"
	"errors"
	"testing"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/supplier"
)

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) SendShipmentEmail(ctx context.Context, orderID uint, fulfillmentStatus string) error {
	n.calls = append(n.calls, fulfillmentStatus)
	return nil
}

func (f *fulfillmentFixture) trackingService(notifier ShipmentNotifier) *TrackingService {
	return NewTrackingService(TrackingServiceOptions{
		DB:        f.db,
		OrderRepo: f.orderRepo,
		Events:    f.events,
		Suppliers: f.registry,
		Notifier:  notifier,
	})
}

func TestUpdateTrackingWithoutSupplierOrderReturnsNil(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createOrder(t, models.Order{})

	got, err := f.trackingService(nil).UpdateTracking(context.Background(), order.ID)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %+v %v", got, err)
	}
	if f.adapter.trackingCalls != 0 {
		t.Fatalf("adapter must not be called")
	}
}

func TestUpdateTrackingOrderNotFound(t *testing.T) {
	f := setupFulfillmentTest(t)
	if _, err := f.trackingService(nil).UpdateTracking(context.Background(), 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateTrackingPromotesProcessingToShipped(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createSentOrder(t, "BB-T1", constants.SupplierStatusAcceptedBySupplier)
	f.adapter.tracking = &supplier.TrackingResult{Status: constants.TrackingStatusInTransit, TrackingNumber: "TRK-1", TrackingURL: "https://track.example/TRK-1"}
	notifier := &recordingNotifier{}

	got, err := f.trackingService(notifier).UpdateTracking(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("update tracking failed: %v", err)
	}
	if got.FulfillmentStatus != constants.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", got.FulfillmentStatus)
	}

	saved := f.reloadOrder(t, order.ID)
	if saved.FulfillmentStatus != constants.FulfillmentStatusShipped || stringValue(saved.TrackingNumber) != "TRK-1" || saved.TrackingUpdatedAt == nil {
		t.Fatalf("tracking not persisted: %+v", saved)
	}
	if saved.SupplierOrderStatus != constants.SupplierStatusAcceptedBySupplier {
		t.Fatalf("in_transit must not move supplier status, got %s", saved.SupplierOrderStatus)
	}
	if events := f.listEvents(t, order.ID); len(events) != 1 || events[0].MetadataJSON["fulfillment_to"] != constants.FulfillmentStatusShipped {
		t.Fatalf("expected one fulfillment event, got %+v", events)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != constants.FulfillmentStatusShipped {
		t.Fatalf("expected shipment notification, got %v", notifier.calls)
	}
}

func TestUpdateTrackingDeliveredMovesSupplierStatus(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createOrder(t, models.Order{
		SupplierName:        "bigbuy",
		SupplierOrderID:     strPtr("BB-T2"),
		SupplierOrderStatus: constants.SupplierStatusShipped,
		FulfillmentStatus:   constants.FulfillmentStatusShipped,
		TrackingNumber:      strPtr("TRK-OLD"),
	})
	f.adapter.tracking = &supplier.TrackingResult{Status: constants.TrackingStatusDelivered}
	notifier := &recordingNotifier{}

	if _, err := f.trackingService(notifier).UpdateTracking(context.Background(), order.ID); err != nil {
		t.Fatalf("update tracking failed: %v", err)
	}
	saved := f.reloadOrder(t, order.ID)
	if saved.FulfillmentStatus != constants.FulfillmentStatusDelivered || saved.SupplierOrderStatus != constants.SupplierStatusDelivered {
		t.Fatalf("delivery not applied: %+v", saved)
	}
	if stringValue(saved.TrackingNumber) != "TRK-OLD" {
		t.Fatalf("stored tracking number should be kept, got %s", stringValue(saved.TrackingNumber))
	}
	events := f.listEvents(t, order.ID)
	if len(events) != 1 || stringValue(events[0].OldStatus) != constants.SupplierStatusShipped || events[0].NewStatus != constants.SupplierStatusDelivered {
		t.Fatalf("unexpected events: %+v", events)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != constants.FulfillmentStatusDelivered {
		t.Fatalf("expected delivered notification, got %v", notifier.calls)
	}
}

func TestUpdateTrackingWithoutChangeWritesNoEvent(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createOrder(t, models.Order{
		SupplierOrderID:     strPtr("BB-T3"),
		SupplierOrderStatus: constants.SupplierStatusShipped,
		FulfillmentStatus:   constants.FulfillmentStatusShipped,
	})
	f.adapter.tracking = &supplier.TrackingResult{Status: constants.TrackingStatusInTransit, TrackingNumber: "TRK-3"}

	if _, err := f.trackingService(nil).UpdateTracking(context.Background(), order.ID); err != nil {
		t.Fatalf("update tracking failed: %v", err)
	}
	if events := f.listEvents(t, order.ID); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if saved := f.reloadOrder(t, order.ID); stringValue(saved.TrackingNumber) != "TRK-3" {
		t.Fatalf("tracking number not refreshed: %+v", saved)
	}
}

func TestUpdateTrackingAdapterFailure(t *testing.T) {
	f := setupFulfillmentTest(t)
	order := f.createSentOrder(t, "BB-T4", constants.SupplierStatusSentToSupplier)
	f.adapter.trackingErr = errors.New("bigbuy 500")

	if _, err := f.trackingService(nil).UpdateTracking(context.Background(), order.ID); !errors.Is(err, ErrTrackingFetchFailed) {
		t.Fatalf("expected ErrTrackingFetchFailed, got %v", err)
	}
}

func TestMapTrackingToFulfillment(t *testing.T) {
	cases := []struct {
		tracking string
		current  string
		want     string
	}{
		{constants.TrackingStatusDelivered, constants.FulfillmentStatusProcessing, constants.FulfillmentStatusDelivered},
		{constants.TrackingStatusShipped, constants.FulfillmentStatusProcessing, constants.FulfillmentStatusShipped},
		{constants.TrackingStatusPending, constants.FulfillmentStatusProcessing, constants.FulfillmentStatusShipped},
		{constants.TrackingStatusInTransit, constants.FulfillmentStatusShipped, constants.FulfillmentStatusShipped},
		{constants.TrackingStatusException, constants.FulfillmentStatusCancelled, constants.FulfillmentStatusCancelled},
	}
	for _, tc := range cases {
		if got := mapTrackingToFulfillment(tc.tracking, tc.current); got != tc.want {
			t.Fatalf("map(%s, %s) want %s, got %s", tc.tracking, tc.current, tc.want, got)
		}
	}
}
