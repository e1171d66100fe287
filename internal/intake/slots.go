package intake

import "context"

// Slot is one bookable appointment.
type Slot struct {
	SlotID string `json:"slotId"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Type   string `json:"type"`
}

// SlotOffer is read-only reference data injected into the prompt context.
// It is never persisted by this package.
type SlotOffer struct {
	DoctorName string `json:"doctorName"`
	Specialty  string `json:"specialty"`
	Slots      []Slot `json:"slots"`
}

// SlotProvider returns current appointment availability. A real
// implementation would query a scheduling system.
type SlotProvider interface {
	AvailableSlots(ctx context.Context) (SlotOffer, error)
}

// StaticSlotProvider serves a fixed set of slots.
type StaticSlotProvider struct {
	offer SlotOffer
}

// NewStaticSlotProvider returns a provider with the default hepatology
// availability.
func NewStaticSlotProvider() *StaticSlotProvider {
	return &StaticSlotProvider{
		offer: SlotOffer{
			DoctorName: "Dr. A. Gupta",
			Specialty:  "Hepatology",
			Slots: []Slot{
				{SlotID: "SLOT_10_AM", Date: "2025-12-10", Time: "09:30 AM", Type: "In-Person"},
				{SlotID: "SLOT_11_PM", Date: "2025-12-11", Time: "02:00 PM", Type: "In-Person"},
				{SlotID: "SLOT_12_AM", Date: "2025-12-12", Time: "10:00 AM", Type: "In-Person"},
			},
		},
	}
}

func (p *StaticSlotProvider) AvailableSlots(_ context.Context) (SlotOffer, error) {
	return p.offer, nil
}
