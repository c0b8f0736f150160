package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("clinic", 8*3600)
	late := time.Date(2024, 6, 3, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), DateOf(late, loc))
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), DateOf(late, time.UTC))
}

func TestKindOfWrapped(t *testing.T) {
	base := NewError(KindConflict, "DUPLICATE", "duplicate")
	err := fmt.Errorf("saving: %w", base)

	assert.Equal(t, KindConflict, KindOf(err))
	de, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, "DUPLICATE", de.Code)
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}

func TestActorIdentity(t *testing.T) {
	staff, patient := uuid.New(), uuid.New()
	doctor := Actor{Role: RoleDoctor, StaffID: &staff}
	self := Actor{Role: RolePatient, PatientID: &patient}

	assert.True(t, doctor.IsStaff(RoleDoctor, staff))
	assert.False(t, doctor.IsStaff(RoleNurse, staff))
	assert.True(t, self.OwnsPatient(patient))
	assert.False(t, self.OwnsPatient(uuid.New()))
	assert.False(t, doctor.OwnsPatient(patient))
}
