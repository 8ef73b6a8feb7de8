// Package policy merges application and company configuration into the
// EffectivePolicy that gates outbound session actions.
package policy

// ContactMode selects how contacts are managed for a tenant.
type ContactMode string

const (
	ContactLocal       ContactMode = "LOCAL"
	ContactExternalAPI ContactMode = "API_EXTERNA"
	ContactHybrid      ContactMode = "HIBRIDO"
)

// SourceConfig is one configuration source as served by the backend. A nil
// field is undefined in that source.
type SourceConfig struct {
	PrimaryColor   *string `json:"primaryColor,omitempty"`
	SecondaryColor *string `json:"secondaryColor,omitempty"`
	LogoURL        *string `json:"logoUrl,omitempty"`

	EnableFileSharing   *bool `json:"enableFileSharing,omitempty"`
	EnableGroupChat     *bool `json:"enableGroupChat,omitempty"`
	EnableVideoCall     *bool `json:"enableVideoCall,omitempty"`
	EnableVoiceMessages *bool `json:"enableVoiceMessages,omitempty"`
	EnableScreenSharing *bool `json:"enableScreenSharing,omitempty"`
	EnableNotifications *bool `json:"enableNotifications,omitempty"`
	EnableAnalytics     *bool `json:"enableAnalytics,omitempty"`
	EnableTwoFactor     *bool `json:"enableTwoFactor,omitempty"`

	MaxMessageLength         *int `json:"maxMessageLength,omitempty"`
	MaxUsersPerChannel       *int `json:"maxUsersPerChannel,omitempty"`
	MaxRequestsPerMinute     *int `json:"maxRequestsPerMinute,omitempty"`
	MaxConcurrentConnections *int `json:"maxConcurrentConnections,omitempty"`
	SessionTimeoutMinutes    *int `json:"sessionTimeoutMinutes,omitempty"`

	PasswordMinLength *int  `json:"passwordMinLength,omitempty"`
	EnableSocialLogin *bool `json:"enableSocialLogin,omitempty"`
	EnableGuestAccess *bool `json:"enableGuestAccess,omitempty"`

	ContactManagementMode  *ContactMode `json:"contactManagementMode,omitempty"`
	RequiresContactRequest *bool        `json:"requiere_solicitud_contacto,omitempty"`
	AllowDirectChat        *bool        `json:"permitir_chat_directo,omitempty"`
}

type Branding struct {
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
}

type Features struct {
	FileSharing   bool `json:"enableFileSharing"`
	GroupChat     bool `json:"enableGroupChat"`
	VideoCall     bool `json:"enableVideoCall"`
	VoiceMessages bool `json:"enableVoiceMessages"`
	ScreenSharing bool `json:"enableScreenSharing"`
	Notifications bool `json:"enableNotifications"`
	Analytics     bool `json:"enableAnalytics"`
	TwoFactor     bool `json:"enableTwoFactor"`
}

// Limits holds numeric caps. A nil limit is not enforced.
type Limits struct {
	MaxMessageLength         *int `json:"maxMessageLength"`
	MaxUsersPerChannel       *int `json:"maxUsersPerChannel"`
	MaxRequestsPerMinute     *int `json:"maxRequestsPerMinute"`
	MaxConcurrentConnections *int `json:"maxConcurrentConnections"`
	SessionTimeoutMinutes    *int `json:"sessionTimeoutMinutes"`
}

type AuthSettings struct {
	PasswordMinLength int  `json:"passwordMinLength"`
	SocialLogin       bool `json:"enableSocialLogin"`
	GuestAccess       bool `json:"enableGuestAccess"`
}

type ContactPolicy struct {
	Mode                   ContactMode `json:"mode"`
	RequiresContactRequest bool        `json:"requiresContactRequest"`
	AllowDirectChat        bool        `json:"allowDirectChat"`
}

// EffectivePolicy is the merged result of all sources. Values are replaced
// whole, never mutated in place.
type EffectivePolicy struct {
	Branding Branding      `json:"branding"`
	Features Features      `json:"features"`
	Limits   Limits        `json:"limits"`
	Auth     AuthSettings  `json:"auth"`
	Contact  ContactPolicy `json:"contact"`
}

// RequiresPermissionCheck reports whether new conversations need the
// permission endpoint to allow the pair first.
func (p EffectivePolicy) RequiresPermissionCheck() bool {
	return p.Contact.RequiresContactRequest || !p.Contact.AllowDirectChat
}

// Feature names a boolean capability of the policy.
type Feature string

const (
	FeatureFileSharing   Feature = "fileSharing"
	FeatureGroupChat     Feature = "groupChat"
	FeatureVideoCall     Feature = "videoCall"
	FeatureVoiceMessages Feature = "voiceMessages"
	FeatureScreenSharing Feature = "screenSharing"
	FeatureNotifications Feature = "notifications"
	FeatureAnalytics     Feature = "analytics"
	FeatureTwoFactor     Feature = "twoFactor"
)

// Enabled reads a feature flag. Unknown features are disabled.
func (p EffectivePolicy) Enabled(f Feature) bool {
	switch f {
	case FeatureFileSharing:
		return p.Features.FileSharing
	case FeatureGroupChat:
		return p.Features.GroupChat
	case FeatureVideoCall:
		return p.Features.VideoCall
	case FeatureVoiceMessages:
		return p.Features.VoiceMessages
	case FeatureScreenSharing:
		return p.Features.ScreenSharing
	case FeatureNotifications:
		return p.Features.Notifications
	case FeatureAnalytics:
		return p.Features.Analytics
	case FeatureTwoFactor:
		return p.Features.TwoFactor
	}
	return false
}
