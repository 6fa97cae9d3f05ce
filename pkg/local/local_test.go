package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSet(t *testing.T) {
	set := NewSet("Welcome, %s!", NewTrans(Rus, "Добро пожаловать, %s!"))

	assert.Equal(t, "Welcome, %s!", set.Text(Eng))
	assert.Equal(t, "Welcome, Ann!", set.Format(Eng, "Ann"))
	assert.Equal(t, "Добро пожаловать, Ann!", set.Format(Rus, "Ann"))
	assert.Equal(t, "Welcome, Bob!", set.DefaultFormat("Bob"))
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, Rus, ParseLanguage(" RU "))
	assert.Equal(t, Eng, ParseLanguage("en"))
	assert.Equal(t, Eng, ParseLanguage("de"))
}
