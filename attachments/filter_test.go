package attachments

import (
	"testing"

	"activities-service/models"
)

func singleFieldTemplate(name, field, fieldType string) *models.Template {
	return &models.Template{
		Name: name,
		Attachment: map[string]models.AttachmentField{
			field: {Type: fieldType, Value: ""},
		},
	}
}

func TestFilterAttachmentFieldCountMismatch(t *testing.T) {
	template := singleFieldTemplate("customer", "Name", models.TypeString)

	result := FilterAttachment(models.Attachment{}, template, "Acme")
	if result.IsValid {
		t.Fatal("expected count mismatch to be rejected")
	}
	if result.Message != "Expected 1 attachment field(s) in the request body. Found 0" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestFilterAttachmentTypeMismatch(t *testing.T) {
	template := singleFieldTemplate("customer", "Name", models.TypeString)
	body := models.Attachment{
		"Name": {Type: models.TypeNumber, Value: 42},
	}

	if result := FilterAttachment(body, template, "Acme"); result.IsValid {
		t.Fatal("expected type mismatch to be rejected")
	}
}

func TestFilterAttachmentPhoneNumbers(t *testing.T) {
	template := singleFieldTemplate("employee", "Employee Contact", models.TypePhoneNumber)
	body := models.Attachment{
		"Employee Contact": {Type: models.TypePhoneNumber, Value: "+918527801093"},
	}

	result := FilterAttachment(body, template, "Acme")
	if !result.IsValid {
		t.Fatalf("expected valid attachment, got %q", result.Message)
	}
	if len(result.PhoneNumbers) != 1 || result.PhoneNumbers[0] != "+918527801093" {
		t.Errorf("PhoneNumbers = %v, want [+918527801093]", result.PhoneNumbers)
	}
}

func TestFilterAttachmentInvalidPhone(t *testing.T) {
	template := singleFieldTemplate("employee", "Employee Contact", models.TypePhoneNumber)
	body := models.Attachment{
		"Employee Contact": {Type: models.TypePhoneNumber, Value: "98765"},
	}

	if result := FilterAttachment(body, template, "Acme"); result.IsValid {
		t.Fatal("expected invalid phone number to be rejected")
	}
}

func TestFilterAttachmentBase64(t *testing.T) {
	template := singleFieldTemplate("product", "Image", models.TypeBase64)

	tests := []struct {
		name      string
		value     string
		wantValid bool
	}{
		{"data url", "data:image/jpg;base64,AAAA", true},
		{"https url", "https://cdn.example.com/a.jpg", true},
		{"empty", "", true},
		{"plain text", "not-an-image", false},
		{"http url", "http://cdn.example.com/a.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := models.Attachment{
				"Image": {Type: models.TypeBase64, Value: tt.value},
			}
			if result := FilterAttachment(body, template, "Acme"); result.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (message %q)", result.IsValid, tt.wantValid, result.Message)
			}
		})
	}
}

func TestFilterAttachmentNameUniquenessQuery(t *testing.T) {
	template := singleFieldTemplate("customer", "Name", models.TypeString)
	body := models.Attachment{
		"Name": {Type: models.TypeString, Value: "Globex"},
	}

	result := FilterAttachment(body, template, "Acme")
	if !result.IsValid {
		t.Fatalf("expected valid attachment, got %q", result.Message)
	}
	if len(result.ShouldNotExist) != 1 {
		t.Fatalf("ShouldNotExist has %d entries, want 1", len(result.ShouldNotExist))
	}
	q := result.ShouldNotExist[0]
	if q.Template != "customer" || q.Office != "Acme" || q.Field != "Name" || q.Value != "Globex" {
		t.Errorf("unexpected uniqueness query %+v", q)
	}
}

func TestFilterAttachmentEmptyNameRejected(t *testing.T) {
	template := singleFieldTemplate("customer", "Name", models.TypeString)
	body := models.Attachment{
		"Name": {Type: models.TypeString, Value: ""},
	}

	if result := FilterAttachment(body, template, "Acme"); result.IsValid {
		t.Fatal("expected empty Name to be rejected")
	}
}

func TestFilterAttachmentShouldExistQuery(t *testing.T) {
	// A field typed after another template references an existing
	// activity of that template.
	template := singleFieldTemplate("duty", "Location", "branch")
	body := models.Attachment{
		"Location": {Type: "branch", Value: "Head Office"},
	}

	result := FilterAttachment(body, template, "Acme")
	if !result.IsValid {
		t.Fatalf("expected valid attachment, got %q", result.Message)
	}
	if len(result.ShouldExist) != 1 {
		t.Fatalf("ShouldExist has %d entries, want 1", len(result.ShouldExist))
	}
	q := result.ShouldExist[0]
	if q.Template != "branch" || q.Field != "Name" || q.Value != "Head Office" {
		t.Errorf("unexpected reference query %+v", q)
	}
}

func TestFilterAttachmentSubscriptionRules(t *testing.T) {
	template := &models.Template{
		Name: models.TemplateSubscription,
		Attachment: map[string]models.AttachmentField{
			"Template":   {Type: models.TypeString},
			"Subscriber": {Type: models.TypePhoneNumber},
		},
	}

	officeBody := models.Attachment{
		"Template":   {Type: models.TypeString, Value: "office"},
		"Subscriber": {Type: models.TypePhoneNumber, Value: "+918527801093"},
	}
	result := FilterAttachment(officeBody, template, "Acme")
	if result.IsValid {
		t.Fatal("expected subscription to 'office' to be rejected")
	}
	if result.Message != "Subscription to the template 'office' is not allowed" {
		t.Errorf("unexpected message %q", result.Message)
	}

	validBody := models.Attachment{
		"Template":   {Type: models.TypeString, Value: "check-in"},
		"Subscriber": {Type: models.TypePhoneNumber, Value: "+918527801093"},
	}
	result = FilterAttachment(validBody, template, "Acme")
	if !result.IsValid {
		t.Fatalf("expected valid subscription attachment, got %q", result.Message)
	}
	if len(result.TemplateChecks) != 1 || result.TemplateChecks[0] != "check-in" {
		t.Errorf("TemplateChecks = %v, want [check-in]", result.TemplateChecks)
	}
}

func TestFilterAttachmentAdminRules(t *testing.T) {
	template := singleFieldTemplate(models.TemplateAdmin, "Admin", models.TypePhoneNumber)

	body := models.Attachment{
		"Admin": {Type: models.TypePhoneNumber, Value: "+918527801093"},
	}
	result := FilterAttachment(body, template, "Acme")
	if !result.IsValid {
		t.Fatalf("expected valid admin attachment, got %q", result.Message)
	}
	if len(result.ProfileChecks) != 1 || result.ProfileChecks[0] != "+918527801093" {
		t.Errorf("ProfileChecks = %v, want [+918527801093]", result.ProfileChecks)
	}
}

func TestFilterAttachmentFirstErrorIsDeterministic(t *testing.T) {
	template := &models.Template{
		Name: "employee",
		Attachment: map[string]models.AttachmentField{
			"Employee Contact": {Type: models.TypePhoneNumber},
			"Weekly Off":       {Type: models.TypeWeekday},
		},
	}
	body := models.Attachment{
		"Employee Contact": {Type: models.TypePhoneNumber, Value: "98765"},
		"Weekly Off":       {Type: models.TypeWeekday, Value: "funday"},
	}

	// Both fields are invalid; the field earliest in scan order must win
	// every time.
	want := "The phone number '98765' in the attachment field 'Employee Contact' is invalid"
	for i := 0; i < 20; i++ {
		result := FilterAttachment(body, template, "Acme")
		if result.IsValid {
			t.Fatal("expected the attachment to be rejected")
		}
		if result.Message != want {
			t.Fatalf("run %d: Message = %q, want %q", i, result.Message, want)
		}
	}
}

func TestFilterAttachmentNumberType(t *testing.T) {
	template := singleFieldTemplate("claim", "Amount", models.TypeNumber)

	valid := models.Attachment{"Amount": {Type: models.TypeNumber, Value: 250.0}}
	if result := FilterAttachment(valid, template, "Acme"); !result.IsValid {
		t.Fatalf("expected float amount to pass, got %q", result.Message)
	}

	invalid := models.Attachment{"Amount": {Type: models.TypeNumber, Value: "250"}}
	if result := FilterAttachment(invalid, template, "Acme"); result.IsValid {
		t.Fatal("expected string amount to be rejected")
	}
}
