package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"penzi/internal/model"
)

func TestCompatibilityScoreSymmetric(t *testing.T) {
	a := &model.User{Age: 25, County: "Nairobi", Town: "Imara", LevelOfEducation: "Graduate", Religion: "Christian"}
	b := &model.User{Age: 30, County: "Mombasa", Town: "Nyali", LevelOfEducation: "Diploma", Religion: "Muslim"}

	assert.Equal(t, CompatibilityScore(a, b), CompatibilityScore(b, a))
}

func TestCompatibilityScoreKnownValues(t *testing.T) {
	cases := []struct {
		name string
		a, b *model.User
		want int
	}{
		{
			name: "same age same county full overlap",
			a:    &model.User{Age: 25, County: "Nairobi", Town: "Imara", LevelOfEducation: "Graduate", Religion: "Christian"},
			b:    &model.User{Age: 25, County: "Nairobi", Town: "Donholm", LevelOfEducation: "Graduate", Religion: "Christian"},
			// (100 + 100 + 70 + 60) / 4
			want: 82,
		},
		{
			name: "same town different county",
			a:    &model.User{Age: 25, County: "Nairobi", Town: "Imara"},
			b:    &model.User{Age: 25, County: "Kiambu", Town: "Imara"},
			// (100 + 80) / 2
			want: 90,
		},
		{
			name: "age gap only",
			a:    &model.User{Age: 20, County: "Nairobi"},
			b:    &model.User{Age: 26, County: "Mombasa"},
			// (40 + 0) / 2
			want: 20,
		},
		{
			name: "huge age gap floors at zero",
			a:    &model.User{Age: 20, County: "Nairobi"},
			b:    &model.User{Age: 60, County: "Nairobi"},
			// (0 + 100) / 2
			want: 50,
		},
		{
			name: "education counted only when both set",
			a:    &model.User{Age: 25, County: "Nairobi", LevelOfEducation: "Graduate"},
			b:    &model.User{Age: 25, County: "Nairobi"},
			// (100 + 100) / 2, education skipped
			want: 100,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompatibilityScore(tc.a, tc.b))
		})
	}
}

func TestCompatibilityScoreCaseInsensitiveMatching(t *testing.T) {
	a := &model.User{Age: 25, County: "NAIROBI"}
	b := &model.User{Age: 25, County: "nairobi"}
	assert.Equal(t, 100, CompatibilityScore(a, b))
}
