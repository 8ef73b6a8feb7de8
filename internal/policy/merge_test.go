package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestMergeDefaultsWithNoSources(t *testing.T) {
	p := Merge(nil, nil)

	assert.Equal(t, Branding{}, p.Branding)
	assert.True(t, p.Features.FileSharing)
	assert.True(t, p.Features.Notifications)
	assert.True(t, p.Features.Analytics)
	assert.True(t, p.Features.GroupChat)
	assert.True(t, p.Features.VideoCall)
	assert.True(t, p.Features.VoiceMessages)
	assert.True(t, p.Features.ScreenSharing)
	assert.False(t, p.Features.TwoFactor)
	assert.Equal(t, Limits{}, p.Limits)
	assert.Equal(t, ContactPolicy{Mode: ContactLocal, AllowDirectChat: true}, p.Contact)
	assert.False(t, p.RequiresPermissionCheck())
}

func TestMergeRestrictiveFlagsAreANDed(t *testing.T) {
	cases := []struct {
		name         string
		app, company *bool
		want         bool
	}{
		{"both undefined", nil, nil, true},
		{"app true company undefined", ptr(true), nil, true},
		{"app false company undefined", ptr(false), nil, false},
		{"company false beats app true", ptr(true), ptr(false), false},
		{"app false beats company true", ptr(false), ptr(true), false},
		{"both true", ptr(true), ptr(true), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Merge(
				&SourceConfig{EnableFileSharing: tc.app, EnableAnalytics: tc.app, EnableNotifications: tc.app},
				&SourceConfig{EnableFileSharing: tc.company, EnableAnalytics: tc.company, EnableNotifications: tc.company},
			)
			assert.Equal(t, tc.want, p.Features.FileSharing)
			assert.Equal(t, tc.want, p.Features.Analytics)
			assert.Equal(t, tc.want, p.Features.Notifications)
		})
	}
}

func TestMergePermissiveFlagsPreferCompany(t *testing.T) {
	p := Merge(
		&SourceConfig{EnableGroupChat: ptr(false), EnableVideoCall: ptr(false)},
		&SourceConfig{EnableGroupChat: ptr(true)},
	)
	assert.True(t, p.Features.GroupChat)
	assert.False(t, p.Features.VideoCall)
	assert.True(t, p.Features.ScreenSharing)
}

func TestMergeNumericLimitsTakeMinimum(t *testing.T) {
	p := Merge(
		&SourceConfig{MaxMessageLength: ptr(2000), MaxRequestsPerMinute: ptr(30), SessionTimeoutMinutes: ptr(0)},
		&SourceConfig{MaxMessageLength: ptr(500), MaxUsersPerChannel: ptr(50)},
	)
	assert.Equal(t, ptr(500), p.Limits.MaxMessageLength)
	assert.Equal(t, ptr(30), p.Limits.MaxRequestsPerMinute)
	assert.Equal(t, ptr(50), p.Limits.MaxUsersPerChannel)
	assert.Nil(t, p.Limits.MaxConcurrentConnections)
	assert.Nil(t, p.Limits.SessionTimeoutMinutes)
}

func TestMergeBrandingIgnoresEmptyCompanyValues(t *testing.T) {
	p := Merge(
		&SourceConfig{PrimaryColor: ptr("#111111"), LogoURL: ptr("https://app/logo.png")},
		&SourceConfig{PrimaryColor: ptr("#222222"), LogoURL: ptr("")},
	)
	assert.Equal(t, "#222222", p.Branding.PrimaryColor)
	assert.Equal(t, "https://app/logo.png", p.Branding.LogoURL)
	assert.Empty(t, p.Branding.SecondaryColor)
}

func TestMergeContactSettings(t *testing.T) {
	p := Merge(
		&SourceConfig{ContactManagementMode: ptr(ContactExternalAPI), AllowDirectChat: ptr(false)},
		&SourceConfig{RequiresContactRequest: ptr(true)},
	)
	assert.Equal(t, ContactExternalAPI, p.Contact.Mode)
	assert.True(t, p.Contact.RequiresContactRequest)
	assert.False(t, p.Contact.AllowDirectChat)
	assert.True(t, p.RequiresPermissionCheck())

	p = Merge(&SourceConfig{ContactManagementMode: ptr(ContactHybrid)}, &SourceConfig{ContactManagementMode: ptr(ContactLocal)})
	assert.Equal(t, ContactLocal, p.Contact.Mode)
}

func TestMergeAuthSettingsPreferCompany(t *testing.T) {
	p := Merge(
		&SourceConfig{PasswordMinLength: ptr(12), EnableTwoFactor: ptr(true), EnableGuestAccess: ptr(true)},
		&SourceConfig{PasswordMinLength: ptr(8), EnableTwoFactor: ptr(false)},
	)
	assert.Equal(t, 8, p.Auth.PasswordMinLength)
	assert.False(t, p.Features.TwoFactor)
	assert.True(t, p.Auth.GuestAccess)
	assert.False(t, p.Auth.SocialLogin)
}

func TestEnabled(t *testing.T) {
	p := Merge(&SourceConfig{EnableVideoCall: ptr(false)}, nil)
	assert.False(t, p.Enabled(FeatureVideoCall))
	assert.True(t, p.Enabled(FeatureFileSharing))
	assert.False(t, p.Enabled(Feature("teleport")))
}
