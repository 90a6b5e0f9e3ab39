package domain

import "time"

// Account is an operator identity managed by the auth provider. The catalog
// core only ever sees the derived session, never this record.
type Account struct {
	ID          int64     `json:"id,string" form:"id"`
	Email       string    `gorm:"uniqueIndex" json:"email" form:"email"`
	Password    string    `json:"-" form:"-"`
	DisplayName string    `json:"display_name" form:"display_name"`
	AvatarURL   string    `gorm:"size:1024" json:"avatar_url" form:"avatar_url"`
	Status      string    `json:"status" form:"status"`
	LastLogin   time.Time `json:"last_login" form:"last_login"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Account) TableName() string {
	return "sys_account"
}

// StoreDocument is one schema-less document row. Payload holds the raw JSON
// fields; DocID is unique within a collection and never reused.
type StoreDocument struct {
	ID         int64     `json:"id,string"`
	Collection string    `gorm:"index:idx_collection_doc,unique" json:"collection"`
	DocID      string    `gorm:"index:idx_collection_doc,unique" json:"doc_id"`
	Payload    string    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (StoreDocument) TableName() string {
	return "store_documents"
}
