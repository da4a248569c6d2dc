package event

const AccountSecretRotatedDestination string = "account_secret_rotated"
const AccountSecretRotatedConsumerNotification string = "account_secret_rotated_notification"

type AccountSecretRotatedMessage struct {
	AccountID  int64  `json:"account_id"`
	Identifier string `json:"identifier"`
	RotatedAt  int64  `json:"rotated_at"`
}
