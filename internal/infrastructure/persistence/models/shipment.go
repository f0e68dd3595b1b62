package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/google/uuid"
)

// ShipmentModel is the persistence model for the Shipment aggregate.
// At most one shipment exists per order.
type ShipmentModel struct {
	AggregateModel
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	OrderNumber    string          `gorm:"type:varchar(50);not null"`
	CarrierCode    string          `gorm:"type:varchar(50);not null"`
	CredentialsRef string          `gorm:"type:varchar(100)"`
	ExternalID     string          `gorm:"type:varchar(100)"`
	Status         shipment.Status `gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts       int             `gorm:"not null;default:0"`
	LastError      string          `gorm:"type:text"`
	LastAttemptAt  *time.Time
	ConfirmedAt    *time.Time
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment
func (m *ShipmentModel) ToDomain() *shipment.Shipment {
	return &shipment.Shipment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderID:           m.OrderID,
		OrderNumber:       m.OrderNumber,
		CarrierCode:       m.CarrierCode,
		CredentialsRef:    m.CredentialsRef,
		ExternalID:        m.ExternalID,
		Status:            m.Status,
		Attempts:          m.Attempts,
		LastError:         m.LastError,
		LastAttemptAt:     m.LastAttemptAt,
		ConfirmedAt:       m.ConfirmedAt,
	}
}

// FromDomain populates the persistence model from a domain Shipment
func (m *ShipmentModel) FromDomain(s *shipment.Shipment) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.OrderID = s.OrderID
	m.OrderNumber = s.OrderNumber
	m.CarrierCode = s.CarrierCode
	m.CredentialsRef = s.CredentialsRef
	m.ExternalID = s.ExternalID
	m.Status = s.Status
	m.Attempts = s.Attempts
	m.LastError = s.LastError
	m.LastAttemptAt = s.LastAttemptAt
	m.ConfirmedAt = s.ConfirmedAt
}

// ShipmentModelFromDomain creates a new persistence model from a domain Shipment
func ShipmentModelFromDomain(s *shipment.Shipment) *ShipmentModel {
	m := &ShipmentModel{}
	m.FromDomain(s)
	return m
}
