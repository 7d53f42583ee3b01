package service

import (
	"errors"
	"testing"

	"github.com/voltdrop/internal/constants"
	"github.com/voltdrop/internal/repository"
)

func TestOperatorAuditRecordsOutcome(t *testing.T) {
	f := setupFulfillmentTest(t)
	svc := NewOperatorAuditService(repository.NewOperatorAuditRepository(f.db))
	orderID := uint(7)

	if err := svc.Record(OperatorAuditInput{OperatorAdminID: 1, OperatorUsername: " root ", Action: constants.AuditActionOrderDispatch, OrderID: &orderID}); err != nil {
		t.Fatalf("record success failed: %v", err)
	}
	if err := svc.Record(OperatorAuditInput{OperatorAdminID: 1, Action: constants.AuditActionOrderTrackingRefresh, OrderID: &orderID, Err: errors.New("cj 503")}); err != nil {
		t.Fatalf("record failure failed: %v", err)
	}
	// 缺少操作人或动作时不写入
	if err := svc.Record(OperatorAuditInput{Action: constants.AuditActionFulfillmentPoll}); err != nil {
		t.Fatalf("anonymous record should be ignored: %v", err)
	}
	if err := svc.Record(OperatorAuditInput{OperatorAdminID: 1}); err != nil {
		t.Fatalf("empty action should be ignored: %v", err)
	}

	logs, total, err := svc.List(repository.OperatorAuditListFilter{OrderID: orderID, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d %+v", total, logs)
	}
	// 按 id 倒序
	failed, succeeded := logs[0], logs[1]
	if failed.Outcome != constants.AuditOutcomeFailed || failed.DetailJSON["error"] != "cj 503" {
		t.Fatalf("unexpected failed entry: %+v", failed)
	}
	if succeeded.Outcome != constants.AuditOutcomeSucceeded || succeeded.OperatorUsername != "root" {
		t.Fatalf("unexpected succeeded entry: %+v", succeeded)
	}

	filtered, _, err := svc.List(repository.OperatorAuditListFilter{Action: constants.AuditActionOrderDispatch})
	if err != nil || len(filtered) != 1 {
		t.Fatalf("action filter failed: %v %+v", err, filtered)
	}
}

func TestOperatorAuditNilServiceIsNoop(t *testing.T) {
	var svc *OperatorAuditService
	if err := svc.Record(OperatorAuditInput{OperatorAdminID: 1, Action: "x"}); err != nil {
		t.Fatalf("nil service record should be noop: %v", err)
	}
	logs, total, err := svc.List(repository.OperatorAuditListFilter{})
	if err != nil || total != 0 || len(logs) != 0 {
		t.Fatalf("nil service list should be empty: %v %d", err, total)
	}
}
