package policy

// Merge combines the application and company sources. Either may be nil.
//
// Branding and contact settings take the company value, then the
// application value. Restrictive flags are ANDed with undefined counted as
// true. Permissive flags take the company value, then the application value,
// then true. Numeric limits take the smallest defined positive value.
func Merge(app, company *SourceConfig) EffectivePolicy {
	if app == nil {
		app = &SourceConfig{}
	}
	if company == nil {
		company = &SourceConfig{}
	}

	mode := ContactLocal
	if m := firstMode(company.ContactManagementMode, app.ContactManagementMode); m != "" {
		mode = m
	}

	return EffectivePolicy{
		Branding: Branding{
			PrimaryColor:   firstString(company.PrimaryColor, app.PrimaryColor),
			SecondaryColor: firstString(company.SecondaryColor, app.SecondaryColor),
			LogoURL:        firstString(company.LogoURL, app.LogoURL),
		},
		Features: Features{
			FileSharing:   all(company.EnableFileSharing, app.EnableFileSharing),
			Notifications: all(company.EnableNotifications, app.EnableNotifications),
			Analytics:     all(company.EnableAnalytics, app.EnableAnalytics),
			GroupChat:     firstBool(true, company.EnableGroupChat, app.EnableGroupChat),
			VideoCall:     firstBool(true, company.EnableVideoCall, app.EnableVideoCall),
			VoiceMessages: firstBool(true, company.EnableVoiceMessages, app.EnableVoiceMessages),
			ScreenSharing: firstBool(true, company.EnableScreenSharing, app.EnableScreenSharing),
			TwoFactor:     firstBool(false, company.EnableTwoFactor, app.EnableTwoFactor),
		},
		Limits: Limits{
			MaxMessageLength:         minLimit(company.MaxMessageLength, app.MaxMessageLength),
			MaxUsersPerChannel:       minLimit(company.MaxUsersPerChannel, app.MaxUsersPerChannel),
			MaxRequestsPerMinute:     minLimit(company.MaxRequestsPerMinute, app.MaxRequestsPerMinute),
			MaxConcurrentConnections: minLimit(company.MaxConcurrentConnections, app.MaxConcurrentConnections),
			SessionTimeoutMinutes:    minLimit(company.SessionTimeoutMinutes, app.SessionTimeoutMinutes),
		},
		Auth: AuthSettings{
			PasswordMinLength: firstInt(company.PasswordMinLength, app.PasswordMinLength),
			SocialLogin:       firstBool(false, company.EnableSocialLogin, app.EnableSocialLogin),
			GuestAccess:       firstBool(false, company.EnableGuestAccess, app.EnableGuestAccess),
		},
		Contact: ContactPolicy{
			Mode:                   mode,
			RequiresContactRequest: firstBool(false, company.RequiresContactRequest, app.RequiresContactRequest),
			AllowDirectChat:        firstBool(true, company.AllowDirectChat, app.AllowDirectChat),
		},
	}
}

// firstString skips nil and empty values.
func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstBool(fallback bool, values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstMode(values ...*ContactMode) ContactMode {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// all is false only when some source defines the flag as false.
func all(values ...*bool) bool {
	for _, v := range values {
		if v != nil && !*v {
			return false
		}
	}
	return true
}

// minLimit ignores non-positive values and returns nil when nothing is defined.
func minLimit(values ...*int) *int {
	var out *int
	for _, v := range values {
		if v == nil || *v <= 0 {
			continue
		}
		if out == nil || *v < *out {
			n := *v
			out = &n
		}
	}
	return out
}
