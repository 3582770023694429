package models

import (
	"fmt"

	"safestep/pkg/domain"
)

// ResponsibilityStatus tracks where a responsibility sits in the downstream
// acceptance workflow. This service only ever creates pending links.
type ResponsibilityStatus string

const StatusPending ResponsibilityStatus = "pending"

// Item attribute names shared by every store driver.
const (
	AttrECID        = "ecid"
	AttrFirstName   = "f_name"
	AttrEmail       = "email"
	AttrPhone       = "phone"
	AttrDialingCode = "dialing_code"
	AttrRID         = "rid"
	AttrGreenID     = "green_id"
	AttrStatus      = "status"
)

// EmergencyContact is the person a green user names to be notified.
type EmergencyContact struct {
	ECID        domain.ECID
	FirstName   string
	Email       string
	Phone       string
	DialingCode string
}

// Responsibility links one contact to one green user.
type Responsibility struct {
	RID     domain.RID
	ECID    domain.ECID
	GreenID domain.GreenID
	Status  ResponsibilityStatus
}

// Attributes flattens the contact into a store item. Empty optional fields are
// left out so drivers never persist blank strings.
func (c EmergencyContact) Attributes() map[string]string {
	attrs := map[string]string{
		AttrECID:      c.ECID.String(),
		AttrFirstName: c.FirstName,
	}
	if c.Email != "" {
		attrs[AttrEmail] = c.Email
	}
	if c.Phone != "" {
		attrs[AttrPhone] = c.Phone
	}
	if c.DialingCode != "" {
		attrs[AttrDialingCode] = c.DialingCode
	}
	return attrs
}

// Identity returns the value of the configured identifying attribute.
func (c EmergencyContact) Identity(attribute string) string {
	switch attribute {
	case AttrEmail:
		return c.Email
	case AttrPhone:
		return c.Phone
	default:
		return ""
	}
}

// ContactFromAttributes rebuilds a contact from a store item.
func ContactFromAttributes(attrs map[string]string) (EmergencyContact, error) {
	ecid, err := domain.ParseECID(attrs[AttrECID])
	if err != nil {
		return EmergencyContact{}, err
	}
	return EmergencyContact{
		ECID:        ecid,
		FirstName:   attrs[AttrFirstName],
		Email:       attrs[AttrEmail],
		Phone:       attrs[AttrPhone],
		DialingCode: attrs[AttrDialingCode],
	}, nil
}

// Attributes flattens the responsibility into a store item.
func (r Responsibility) Attributes() map[string]string {
	return map[string]string{
		AttrRID:     r.RID.String(),
		AttrECID:    r.ECID.String(),
		AttrGreenID: r.GreenID.String(),
		AttrStatus:  string(r.Status),
	}
}

// ResponsibilityFromAttributes rebuilds a responsibility from a store item.
func ResponsibilityFromAttributes(attrs map[string]string) (Responsibility, error) {
	rid, ok := attrs[AttrRID]
	if !ok || rid == "" {
		return Responsibility{}, fmt.Errorf("responsibility item missing %s", AttrRID)
	}
	return Responsibility{
		RID:     domain.RID(rid),
		ECID:    domain.ECID(attrs[AttrECID]),
		GreenID: domain.GreenID(attrs[AttrGreenID]),
		Status:  ResponsibilityStatus(attrs[AttrStatus]),
	}, nil
}
