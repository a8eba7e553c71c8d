package db_models

type Account struct {
	BaseModel
	DisplayName      string
	AccountTokenHash string `gorm:"not null"`
	LastSeenAt       int64

	States []AccountState `gorm:"foreignKey:AccountID"`
}
