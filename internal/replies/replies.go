// Package replies holds the user-facing texts and button labels.
package replies

import (
	"fmt"
	"strings"

	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
)

const Greeting = "Hi! I am GeoPal 🌍\n\n" +
	"I help you keep your friends posted about where you are.\n\n" +
	"/add_friend - send a friend request\n" +
	"/friend_list - show your friends\n" +
	"/remove_friend - remove someone from friends\n" +
	"/share_location - tell your friends which city you are in\n" +
	"/help - show this message\n\n" +
	"Press ❌ at any moment to abort the current action."

const (
	ActionAborted        = "Action aborted!"
	RequestAborted       = "Friend request is aborted!"
	ShareFriendPrompt    = "Please share friend you want to add!"
	CommentPrompt        = "If you would like to add any comment, that will be attached to the friend request, you can do it now :) Just send it to me and I will address it to the receiver!"
	AlreadyFriends       = "User is already your friend!"
	CannotAddSelf        = "You cannot send a friend request to yourself!"
	ContactWithoutUser   = "This contact has no Telegram account linked, so I cannot send them a request."
	NoFriends            = "You don't have any friends yet :( You can add them via /add_friend command"
	SelectFriendToRemove = "Please select friend you want to remove:"
	ShareLocationPrompt  = "Please share your location!"
	LocationShared       = "Successfully shared location with your geo pals!"
	LocationFailed       = "Location sharing failed! Please try again later!"
	RequestNoLongerValid = "This friend request is no longer valid."
	NotInFriendList      = "This user is not in your friend list anymore."
	UseAddFriend         = "To send a friend request, use the /add_friend command first!"
	UnknownCommand       = "Unknown command! Send /help to see what I can do."
	UnexpectedFailure    = "Something went wrong!"

	RemindTarget       = "Please share a contact of the friend you want to add using the attachment menu, or press ❌ to abort."
	RemindComment      = "Please send your comment as a text message, or use the buttons above to send the request without comments or abort it."
	RemindConfirmation = "Please confirm or abort the friend request using the buttons above."
)

const (
	BtnSendWithoutComment = "Send without comments✅"
	BtnAbortRequest       = "Abort friend request❌"
	BtnSend               = "Send✅"
	BtnAccept             = "Accept✅"
	BtnDecline            = "Decline❌"
	BtnAbort              = "Abort❌"
	BtnPrevious           = "« Previous"
	BtnNext               = "Next »"
	BtnShareLocation      = "Share Location📍"
	BtnAddFriend          = "Add Friend👤"
	BtnAbortKeyword       = "❌"
)

// Mention renders a person as @handle, falling back to the first name.
func Mention(p identity.Profile) string {
	if h := strings.TrimSpace(p.Handle); h != "" {
		return "@" + h
	}
	if n := strings.TrimSpace(p.FirstName); n != "" {
		return n
	}
	return fmt.Sprintf("user %d", p.ID)
}

// FullName joins first and last name.
func FullName(p identity.Profile) string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func RequestReceived(sender identity.Profile, comment string) string {
	msg := fmt.Sprintf("You got new friend request from %s", Mention(sender))
	if comment != "" {
		msg += "\n\n" + comment
	}
	return msg
}

func RequestPreview(receiver identity.Profile, comment string) string {
	return fmt.Sprintf("Please confirm the sending of friend request!\n%s will receive a following message from you:\n\n%s", Mention(receiver), comment)
}

func RequestSent(receiver identity.Profile) string {
	return fmt.Sprintf("You have sent request to: %s", Mention(receiver))
}

func RequestAccepted(receiver identity.Profile) string {
	return fmt.Sprintf("%s has accepted your friend request!", Mention(receiver))
}

func YouAccepted(sender identity.Profile) string {
	return fmt.Sprintf("You have accepted %s friend request!", Mention(sender))
}

func RequestDeclined(receiver identity.Profile) string {
	return fmt.Sprintf("%s has declined your friend request!", Mention(receiver))
}

func YouDeclined(sender identity.Profile) string {
	return fmt.Sprintf("You have declined %s friend request!", Mention(sender))
}

func ConfirmRemoval(friend identity.Profile) string {
	return fmt.Sprintf("Are you sure you want to remove friend:\n%s", Mention(friend))
}

func Removed(friend identity.Profile) string {
	return fmt.Sprintf("Successfully removed %s from friends!", Mention(friend))
}

func RemovedBy(actor identity.Profile) string {
	return fmt.Sprintf("%s has removed you from friends. You are no longer sharing location with them! If you want to add them back to friends - send new /add_friend command!", Mention(actor))
}

func NowIn(actor identity.Profile, place string) string {
	return fmt.Sprintf("%s is now in %s!", Mention(actor), place)
}

func PartialDelivery(delivered, total int) string {
	return fmt.Sprintf("%s Your location reached %d of %d friends.", LocationFailed, delivered, total)
}

// FriendLine renders one entry of /friend_list.
func FriendLine(i int, p identity.Profile) string {
	return fmt.Sprintf("%d) %s - %s", i, FullName(p), Mention(p))
}

// RemoveLabel renders one removal button.
func RemoveLabel(i int, p identity.Profile) string {
	return fmt.Sprintf("%d) %s", i, Mention(p))
}

// WithAdminSuffix appends the contact-administrator hint.
func WithAdminSuffix(msg string) string {
	return msg + "\n\n" + failure.AdminSuffix
}
