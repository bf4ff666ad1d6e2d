package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrCannotFriendSelf      = errors.New("cannot add yourself as a friend")
	ErrAlreadyFriends        = errors.New("already friends")
	ErrFriendRequestExists   = errors.New("friend request already sent")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrUserBlocked           = errors.New("user is blocked")
	ErrNotFriends            = errors.New("users are not friends")
	ErrUnknownAction         = errors.New("unknown action")

	ErrGroupNotFound      = errors.New("group not found")
	ErrNotGroupMember     = errors.New("not a member of this group")
	ErrNotGroupAdmin      = errors.New("group admin required")
	ErrAlreadyMember      = errors.New("already a member of this group")
	ErrLastAdmin          = errors.New("the last admin cannot leave while other members remain")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrInvitationUsed     = errors.New("invitation already used")
	ErrInvalidRole        = errors.New("role must be admin or member")

	ErrPaymentRequestNotFound = errors.New("payment request not found")
	ErrInvalidTransition      = errors.New("payment request cannot change to this status from its current status")
	ErrSelfPaymentRequest     = errors.New("cannot request a payment from yourself")
	ErrInvalidAmount          = errors.New("amount is out of range")
	ErrInvalidCurrency        = errors.New("currency must be a 3-letter code")
	ErrInvalidDirection       = errors.New("direction must be incoming, outgoing or all")

	ErrBillNotFound         = errors.New("bill not found")
	ErrBillItemNotFound     = errors.New("bill item not found")
	ErrBillEmpty            = errors.New("bill has no items")
	ErrUnassignedItem       = errors.New("every item needs at least one assignee")
	ErrBillAlreadyRequested = errors.New("payment requests were already created for this bill")
	ErrInvalidFile          = errors.New("unsupported file type")
)
