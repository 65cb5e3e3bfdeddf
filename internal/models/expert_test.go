package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestExpertProfile(t *testing.T) {
	t.Run("decodes skills and slots", func(t *testing.T) {
		e := Expert{
			ID:             "E1",
			Name:           "Asha",
			Skills:         pq.StringArray{"tarot", "numerology"},
			AvailableSlots: datatypes.JSON(`[{"date":"2026-10-20","startTime":"09:00","endTime":"10:30"}]`),
			CurrentStatus:  ExpertBusy,
		}

		p, err := e.Profile()
		require.NoError(t, err)
		assert.Equal(t, ExpertProfile{
			ID:             "E1",
			Name:           "Asha",
			Skills:         []string{"tarot", "numerology"},
			AvailableSlots: []AvailabilitySlot{{Date: "2026-10-20", StartTime: "09:00", EndTime: "10:30"}},
			Status:         ExpertBusy,
		}, p)
	})

	t.Run("empty columns yield empty lists", func(t *testing.T) {
		p, err := Expert{ID: "E2", AvailableSlots: datatypes.JSON("null")}.Profile()
		require.NoError(t, err)
		assert.Equal(t, []string{}, p.Skills)
		assert.Equal(t, []AvailabilitySlot{}, p.AvailableSlots)
	})

	t.Run("malformed slots", func(t *testing.T) {
		_, err := Expert{ID: "E3", AvailableSlots: datatypes.JSON(`{"date":1}`)}.Profile()
		assert.ErrorContains(t, err, "E3")
	})
}
