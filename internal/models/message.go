package models

import "time"

// Message is an immutable chat line scoped to a contract.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContractID uint      `gorm:"not null;index:idx_messages_contract_created" json:"contract_id"`
	SenderID   uint      `gorm:"not null" json:"sender_id"`
	Sender     *Profile  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"index:idx_messages_contract_created" json:"created_at"`
}
