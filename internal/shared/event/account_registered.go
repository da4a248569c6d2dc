package event

const AccountRegisteredDestination string = "account_registered"
const AccountRegisteredConsumerNotification string = "account_registered_notification"

type AccountRegisteredMessage struct {
	AccountID    int64  `json:"account_id"`
	Identifier   string `json:"identifier"`
	RegisteredAt int64  `json:"registered_at"`
}
