package services

import (
	"errors"
	"testing"

	"wedding-backend/models"
)

func TestCreateRsvp(t *testing.T) {
	db := newTestDB(t)
	svc := NewRsvpService(db)

	msg := "Estaremos lá!"
	rsvp, err := svc.Create(models.EventCasamento, "  João Pereira ", "11987654321", &msg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rsvp.NomeCompleto != "João Pereira" {
		t.Fatalf("name not trimmed: %q", rsvp.NomeCompleto)
	}
	if rsvp.NomeNormalizado != "joão pereira" {
		t.Fatalf("normalized name = %q", rsvp.NomeNormalizado)
	}
	if rsvp.ID == 0 {
		t.Fatal("id not assigned")
	}
}

func TestCreateRsvpRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	svc := NewRsvpService(db)

	if _, err := svc.Create(models.EventCasamento, "John Doe", "11987654321", nil); err != nil {
		t.Fatalf("first rsvp: %v", err)
	}

	cases := []string{"John Doe", "JOHN DOE", "  john doe  "}
	for _, name := range cases {
		if _, err := svc.Create(models.EventCasamento, name, "11900000000", nil); !errors.Is(err, ErrDuplicateName) {
			t.Fatalf("%q: got %v, want ErrDuplicateName", name, err)
		}
	}
}

func TestRsvpTablesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	svc := NewRsvpService(db)

	if _, err := svc.Create(models.EventCasamento, "John Doe", "11987654321", nil); err != nil {
		t.Fatalf("wedding rsvp: %v", err)
	}

	// Same name on the other event type is a fresh confirmation.
	if _, err := svc.Create(models.EventChaPanela, "John Doe", "11987654321", nil); err != nil {
		t.Fatalf("shower rsvp: %v", err)
	}

	wedding, err := svc.ListByEventType(models.EventCasamento)
	if err != nil {
		t.Fatalf("ListByEventType: %v", err)
	}
	if len(wedding) != 1 {
		t.Fatalf("got %d wedding rsvps, want 1", len(wedding))
	}
}
