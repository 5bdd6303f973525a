package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func TestRomanizeChineseName(t *testing.T) {
	assert.Equal(t, "WangWei", RomanizeChineseName("王伟"))
	assert.Equal(t, "", RomanizeChineseName(""))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SLA 示例目录", "sla-shi-li-mu-lu"},
		{"Fall 2025 / Draft", "fall-2025-draft"},
		{"  ", "catalog"},
		{"目录", "mu-lu"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestGenerateRandomUser(t *testing.T) {
	user, err := GenerateRandomUser("password", "example.com")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleViewer, user.Role)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]+[0-9]{1,3}@example\.com$`), user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")))
}

func TestGenerateRandomSubset(t *testing.T) {
	arr := []string{"a", "b", "c", "d"}

	for i := 0; i < 50; i++ {
		subset := GenerateRandomSubset(arr)
		assert.NotEmpty(t, subset)
		assert.LessOrEqual(t, len(subset), len(arr))

		seen := make(map[string]bool)
		for _, s := range subset {
			assert.Contains(t, arr, s)
			assert.False(t, seen[s])
			seen[s] = true
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, arr)
}

func TestGenerateRandomCatalogIsValid(t *testing.T) {
	for i := 0; i < 10; i++ {
		c := GenerateRandomCatalog(15, 8, 6, 7)

		require.NoError(t, ValidateCatalog(c))
		assert.Len(t, c.Activities, 15)
		assert.Len(t, c.Rooms, 8)
		assert.Len(t, c.TimeSlots, 6)
		assert.Len(t, c.Facilitators, 7)

		for _, f := range c.Facilitators {
			assert.Regexp(t, `^[A-Za-z]+$`, f.Name)
		}
		for _, act := range c.Activities {
			assert.NotEmpty(t, act.Preferred)
		}
	}
}
