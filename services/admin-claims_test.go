package services

import (
	"context"
	"reflect"
	"testing"

	"activities-service/clients"
	"activities-service/models"
)

// fakeIdentity records the claims it is asked to set.
type fakeIdentity struct {
	records   map[string]clients.AuthRecord
	claimsUID string
	claims    []string
	calls     int
}

func (f *fakeIdentity) LookupByPhone(ctx context.Context, phone string) (clients.AuthRecord, error) {
	return f.records[phone], nil
}

func (f *fakeIdentity) SetAdminClaims(ctx context.Context, uid string, offices []string) error {
	f.claimsUID = uid
	f.claims = offices
	f.calls++
	return nil
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, uid string) error {
	return nil
}

func adminActivity(office, phone, status string) *models.Activity {
	return &models.Activity{
		ID:       "admin-1",
		Office:   office,
		Template: models.TemplateAdmin,
		Status:   status,
		Attachment: models.Attachment{
			"Admin": {Type: models.TypePhoneNumber, Value: phone},
		},
	}
}

func TestHandleAdminClaims(t *testing.T) {
	tests := []struct {
		name       string
		record     clients.AuthRecord
		after      *models.Activity
		wantCalls  int
		wantClaims []string
	}{
		{
			name:       "grant adds the office",
			record:     clients.AuthRecord{UID: "uid-1", AdminOffices: []string{"Globex"}},
			after:      adminActivity("Initech", "+919876543210", models.StatusConfirmed),
			wantCalls:  1,
			wantClaims: []string{"Globex", "Initech"},
		},
		{
			name:       "revocation removes the office",
			record:     clients.AuthRecord{UID: "uid-1", AdminOffices: []string{"Globex", "Initech"}},
			after:      adminActivity("Initech", "+919876543210", models.StatusCancelled),
			wantCalls:  1,
			wantClaims: []string{"Globex"},
		},
		{
			name:       "grant is idempotent",
			record:     clients.AuthRecord{UID: "uid-1", AdminOffices: []string{"Initech"}},
			after:      adminActivity("Initech", "+919876543210", models.StatusConfirmed),
			wantCalls:  1,
			wantClaims: []string{"Initech"},
		},
		{
			name:      "unregistered admin is skipped",
			record:    clients.AuthRecord{},
			after:     adminActivity("Initech", "+919876543210", models.StatusConfirmed),
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &fakeIdentity{records: map[string]clients.AuthRecord{
				"+919876543210": tt.record,
			}}
			svc := NewTriggerService(nil, identity, nil, nil, "")

			if err := svc.handleAdmin(context.Background(), &ChangeContext{After: tt.after}); err != nil {
				t.Fatalf("handleAdmin: %v", err)
			}
			if identity.calls != tt.wantCalls {
				t.Fatalf("SetAdminClaims calls = %d, want %d", identity.calls, tt.wantCalls)
			}
			if tt.wantCalls > 0 && !reflect.DeepEqual(identity.claims, tt.wantClaims) {
				t.Errorf("claims = %v, want %v", identity.claims, tt.wantClaims)
			}
		})
	}
}

func TestCascadeDepthLimit(t *testing.T) {
	svc := NewTriggerService(nil, &fakeIdentity{}, nil, nil, "")
	c := &ChangeContext{Depth: maxCascadeDepth}

	// At the limit the change is dropped instead of re-entering the
	// engine; a nil store would panic if it did.
	after := adminActivity("Initech", "+919876543210", models.StatusConfirmed)
	if err := svc.cascade(context.Background(), c, nil, after); err != nil {
		t.Fatalf("cascade at depth limit: %v", err)
	}
}
