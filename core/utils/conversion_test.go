package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(nil))
}

func TestEnvWithPrefix(t *testing.T) {
	environ := []string{
		"CRM_PEOPLE=p-1",
		"HOME=/root",
		"CRM_CONTACTS=c-1",
		"CRM_EMPTY=",
		"CRM_BROKEN",
	}

	got := EnvWithPrefix(environ, "CRM_")
	assert.Equal(t, []KeyValue{
		{Key: "CRM_CONTACTS", Value: "c-1"},
		{Key: "CRM_PEOPLE", Value: "p-1"},
	}, got)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 42, ToInt("42"))
	assert.Equal(t, 7, ToInt(int64(7)))
	assert.Equal(t, 0, ToInt("nope"))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("1"))
	assert.False(t, ToBool("no"))
}
