package event

const AccountResetRequestedDestination string = "account_reset_requested"

// AccountResetRequestedMessage never carries the recovery token itself.
type AccountResetRequestedMessage struct {
	AccountID   int64  `json:"account_id"`
	Identifier  string `json:"identifier"`
	Delivered   bool   `json:"delivered"`
	RequestedAt int64  `json:"requested_at"`
}
