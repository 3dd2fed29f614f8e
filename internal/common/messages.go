package common

// Action names a user-visible operation for message rendering.
type Action string

const (
	ActionLoadEntries    Action = "load entries"
	ActionAddEntry       Action = "add entry"
	ActionDeleteEntry    Action = "delete entry"
	ActionLoadProfile    Action = "load profile"
	ActionUpdatePrice    Action = "update price"
	ActionUpdateCurrency Action = "update currency"
	ActionSignIn         Action = "sign in"
	ActionSignUp         Action = "sign up"
)

var loginHints = map[Action]string{
	ActionLoadEntries:    "view your entries",
	ActionAddEntry:       "add entries",
	ActionDeleteEntry:    "delete entries",
	ActionLoadProfile:    "view your profile",
	ActionUpdatePrice:    "change your price",
	ActionUpdateCurrency: "change your currency",
}

// UserMessage maps err to the text shown to the user for the given action.
func UserMessage(action Action, err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUserNotFound:
		hint, ok := loginHints[action]
		if !ok {
			hint = "continue"
		}
		return "Please log in to " + hint + "."
	case KindTransportTimeout:
		return "Request timed out. Please try again."
	case KindTransportUnreachable:
		return "No internet connection. Please check your network."
	case KindTransportOther:
		return "Network error. Please try again."
	case KindRemoteRejected:
		return "Failed to " + string(action) + ": " + Detail(err)
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindValidation:
		return Detail(err)
	case KindDecodeFailure:
		return "Failed to " + string(action) + ": unexpected response from server."
	case KindNotFound:
		return "Failed to " + string(action) + ": not found."
	default:
		if action == ActionLoadEntries {
			return "An unexpected error occurred. Please try again."
		}
		return "Failed to " + string(action) + ". Please try again."
	}
}
