package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/moisesmurillosanmarino/App-SanMarino-sub002/pkg/jwt"
)

const secret = "secreto-de-prueba"

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, pkgjwt.Identity{
		UserID:    "u-1",
		UserName:  "Operador Granja",
		CompanyID: "c-1",
		Role:      "supervisor",
	}, "sanmarino", 30)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "Operador Granja", claims.UserName)
	assert.Equal(t, "c-1", claims.CompanyID)
	assert.Equal(t, "supervisor", claims.Role)
	assert.Equal(t, "sanmarino", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, time.Minute)
}

func TestParse_Rechazos(t *testing.T) {
	valid, err := pkgjwt.Generate(secret, pkgjwt.Identity{UserID: "u-1"}, "sanmarino", 30)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(secret, pkgjwt.Identity{UserID: "u-1"}, "sanmarino", -5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro", valid)
	assert.Error(t, err, "firma incorrecta")

	_, err = pkgjwt.Parse(secret, expired)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)

	_, err = pkgjwt.Parse(secret, "no.es.jwt")
	assert.Error(t, err)

	_, err = pkgjwt.Parse("", valid)
	assert.Error(t, err, "secret vacío")
}

// Un token sin user_id ni sub no identifica a nadie.
func TestParse_SinUsuario(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, pkgjwt.Identity{UserName: "anónimo"}, "sanmarino", 30)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.EqualError(t, err, "jwt: token sin user_id")
}

// Tokens de otros emisores que solo traen sub.
func TestParse_UsaSubjectComoUsuario(t *testing.T) {
	raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "u-9",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tok, err := raw.SignedString([]byte(secret))
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.UserID)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", pkgjwt.Identity{UserID: "u-1"}, "sanmarino", 30)
	assert.Error(t, err)
}
