package chitter

import "errors"

// ErrorTag is a stable string identifier surfaced to callers in place of typed exceptions. The HTTP edge maps every
// tag to a 400 response body unchanged.
type ErrorTag string

// Authentication.
const (
	InvalidUserToken                    ErrorTag = "InvalidUserToken"
	InvalidAdminToken                   ErrorTag = "InvalidAdminToken"
	InvalidAdminTokenOrNonAdminUser     ErrorTag = "InvalidAdminTokenOrNonAdminUser"
	InvalidToken                        ErrorTag = "InvalidToken"
)

// Scope / visibility.
const (
	UserNotFoundInAdminsRoom      ErrorTag = "UserNotFoundInAdminsRoom"
	ChannelNotFoundInUsersRoom    ErrorTag = "ChannelNotFoundInUsersRoom"
	UserIsNotMemberOfPrivateChannel ErrorTag = "UserIsNotMemberOfPrivateChannel"
	RoomNotFound                  ErrorTag = "RoomNotFound"
	ChannelNotFound               ErrorTag = "ChannelNotFound"
	UserNotFound                  ErrorTag = "UserNotFound"
	MessageNotFound               ErrorTag = "MessageNotFound"
	AttachmentNotFound            ErrorTag = "AttachmentNotFound"
	ChannelNotFoundOrNotPrivate   ErrorTag = "ChannelNotFoundOrNotPrivate"
)

// Policy.
const (
	UserIsNotAdminAndRoomIsAdminInviteOnly          ErrorTag = "UserIsNotAdminAndRoomIsAdminInviteOnly"
	UserNotAuthorizedToDeleteThisMessage            ErrorTag = "UserNotAuthorizedToDeleteThisMessage"
	UserNotAuthorizedToEditThisMessage              ErrorTag = "UserNotAuthorizedToEditThisMessage"
	MessageCannotTargetBothAChannelAndADirectUser   ErrorTag = "MessageCannotTargetBothAChannelAndADirectUser"
	EitherChannelIdOrDirectMessageUserIdMustBeProvided ErrorTag = "EitherChannelIdOrDirectMessageUserIdMustBeProvided"
	DisplayNameAlreadyExistsInTheRoom               ErrorTag = "DisplayNameAlreadyExistsInTheRoom"
)

// Content.
const (
	InvalidContentStructure         ErrorTag = "InvalidContentStructure"
	InvalidTextContent              ErrorTag = "InvalidTextContent"
	InvalidFacet                    ErrorTag = "InvalidFacet"
	InvalidEmbed                    ErrorTag = "InvalidEmbed"
	InvalidAttachmentIDs            ErrorTag = "InvalidAttachmentIDs"
	InvalidOrNonImageLogoAttachment ErrorTag = "InvalidOrNonImageLogoAttachment"
	InvalidOrNonImageAvatarAttachment ErrorTag = "InvalidOrNonImageAvatarAttachment"
	InvalidFileType                 ErrorTag = "InvalidFileType"
)

// Credentials.
const (
	InvalidInviteCode           ErrorTag = "InvalidInviteCode"
	InvalidOrExpiredTransferCode ErrorTag = "InvalidOrExpiredTransferCode"
	NoValidTokens               ErrorTag = "NoValidTokens"
)

// Generic / failure.
const (
	CouldNotCreateRoomAndAdmin       ErrorTag = "CouldNotCreateRoomAndAdmin"
	CouldNotCreateInviteCode         ErrorTag = "CouldNotCreateInviteCode"
	CouldNotCreateUserFromInviteCode ErrorTag = "CouldNotCreateUserFromInviteCode"
	CouldNotRemoveUser               ErrorTag = "CouldNotRemoveUser"
	CouldNotCreateMessage            ErrorTag = "CouldNotCreateMessage"
	CouldNotRemoveMessage            ErrorTag = "CouldNotRemoveMessage"
	CouldNotEditMessage              ErrorTag = "CouldNotEditMessage"
	CouldNotUpdateRoom               ErrorTag = "CouldNotUpdateRoom"
	CouldNotUpdateUser               ErrorTag = "CouldNotUpdateUser"
	CouldNotChangeUserRole           ErrorTag = "CouldNotChangeUserRole"
	CouldNotGetMessages              ErrorTag = "CouldNotGetMessages"
	CouldNotGetUsers                 ErrorTag = "CouldNotGetUsers"
	CouldNotRetrieveUserDetails      ErrorTag = "CouldNotRetrieveUserDetails"
	CouldNotRetrieveChannels         ErrorTag = "CouldNotRetrieveChannels"
	CouldNotCreateChannel            ErrorTag = "CouldNotCreateChannel"
	CouldNotRemoveChannel            ErrorTag = "CouldNotRemoveChannel"
	CouldNotUpdateChannel            ErrorTag = "CouldNotUpdateChannel"
	CouldNotAddUserToChannel         ErrorTag = "CouldNotAddUserToChannel"
	CouldNotRemoveUserFromChannel    ErrorTag = "CouldNotRemoveUserFromChannel"
	CouldNotCreateTransferCode       ErrorTag = "CouldNotCreateTransferCode"
	CouldNotFetchUserDataFromTransferCode ErrorTag = "CouldNotFetchUserDataFromTransferCode"
	CouldNotUploadAttachment         ErrorTag = "CouldNotUploadAttachment"
	CouldNotRemoveAttachment         ErrorTag = "CouldNotRemoveAttachment"
	CouldNotCreateTables             ErrorTag = "CouldNotCreateTables"
	InvalidParameters                ErrorTag = "InvalidParameters"
	UnknownServerError                ErrorTag = "UnknownServerError"
)

// TaggedError wraps an ErrorTag so it can travel through the standard error interface and be recovered with
// errors.As at the HTTP edge, mirroring the typed-error inspection idiom internal/postgres/errors.go uses for
// PostgreSQL constraint violations.
type TaggedError struct {
	Tag ErrorTag
}

func (e *TaggedError) Error() string { return string(e.Tag) }

// Fail wraps tag as an error.
func Fail(tag ErrorTag) error { return &TaggedError{Tag: tag} }

// TagOf extracts the ErrorTag from err, falling back to UnknownServerError for any error that isn't a TaggedError
// (a storage-layer exception that reached the surface unclassified).
func TagOf(err error) ErrorTag {
	if err == nil {
		return ""
	}
	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Tag
	}
	return UnknownServerError
}
