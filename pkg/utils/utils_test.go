package utils

import (
	"errors"
	"testing"

	appErrors "hydrolink-monitor/pkg/errors"

	"github.com/google/uuid"
	"github.com/matryer/is"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	is := is.New(t)

	hash, err := HashPassword("Sup3r-Secret")
	is.NoErr(err)
	is.True(hash != "Sup3r-Secret")

	is.True(CheckPassword(hash, "Sup3r-Secret"))
	is.True(!CheckPassword(hash, "wrong"))
}

func TestValidatePassword(t *testing.T) {
	is := is.New(t)

	is.NoErr(ValidatePassword("Sup3r-Secret"))
	is.NoErr(ValidatePassword("short1!A")) // exactly 8 with all classes

	for _, weak := range []string{
		"alllowercase1!", // no upper
		"ALLUPPERCASE1!", // no lower
		"NoNumbers!!",    // no digit
		"NoSymbols123",   // no special
		"Ab1!",           // too short
	} {
		is.True(errors.Is(ValidatePassword(weak), appErrors.ErrWeakPassword))
	}
}

func TestSanitizeEmail(t *testing.T) {
	is := is.New(t)

	is.Equal(SanitizeEmail("  Alice@Example.COM "), "alice@example.com")
	is.Equal(SanitizeEmail("a<script>b</script>@example.com"), "ab@example.com")
}

func TestIsValidEmail(t *testing.T) {
	is := is.New(t)

	is.True(IsValidEmail("user@example.com"))
	is.True(IsValidEmail("user.name+tag@sub.example.co"))
	is.True(!IsValidEmail("not-an-email"))
	is.True(!IsValidEmail("missing@tld"))
	is.True(!IsValidEmail(""))
}

func TestSanitizeStringEscapesHTML(t *testing.T) {
	is := is.New(t)

	is.Equal(SanitizeString("  <b>bold</b>  "), "&lt;b&gt;bold&lt;/b&gt;")
}

func TestTokenRoundTrip(t *testing.T) {
	is := is.New(t)

	userID := uuid.New()
	pair, err := GenerateTokenPair(userID, "user@example.com", "test-secret", 1, 24)
	is.NoErr(err)
	is.True(pair.AccessToken != "")
	is.True(pair.RefreshToken != "")

	claims, err := ValidateToken(pair.AccessToken, "test-secret")
	is.NoErr(err)
	is.Equal(claims.UserID, userID)
	is.Equal(claims.Email, "user@example.com")

	_, err = ValidateToken(pair.AccessToken, "wrong-secret")
	is.True(err != nil)

	_, err = ValidateToken("garbage", "test-secret")
	is.True(err != nil)
}
