package model

import (
	"fmt"
	"strings"
	"time"
)

// Gender is one of exactly two profile values.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender accepts the two literals case-insensitively.
func ParseGender(raw string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MALE":
		return GenderMale, nil
	case "FEMALE":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("gender must be Male or Female, got %q", raw)
	}
}

// Opposite returns the other gender, used by match discovery.
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// RegistrationStage is a closed enum of onboarding states. The SMS flow only
// moves through the four legacy stages; the stage_1..stage_8 values belong to
// the web flow and are kept for data parity.
type RegistrationStage string

const (
	StageActivated          RegistrationStage = "activated"
	StageInitial            RegistrationStage = "initial"
	StageDetailsPending     RegistrationStage = "details_pending"
	StageDescriptionPending RegistrationStage = "description_pending"
	StageCompleted          RegistrationStage = "completed"

	Stage1BasicInfo   RegistrationStage = "stage_1_basic_info"
	Stage2Location    RegistrationStage = "stage_2_location"
	Stage3Education   RegistrationStage = "stage_3_education"
	Stage4Profession  RegistrationStage = "stage_4_profession"
	Stage5Personal    RegistrationStage = "stage_5_personal"
	Stage6Ethnicity   RegistrationStage = "stage_6_ethnicity"
	Stage7Description RegistrationStage = "stage_7_description"
	Stage8Photos      RegistrationStage = "stage_8_photos"
)

// forward is the allowed-transition table for the legacy SMS flow. A stage
// only ever advances; there is no edge back.
var forward = map[RegistrationStage]RegistrationStage{
	StageActivated:      StageInitial,
	StageInitial:        StageDetailsPending,
	StageDetailsPending: StageCompleted,
}

// CanAdvance reports whether moving from s to next is a legal forward step.
func (s RegistrationStage) CanAdvance(next RegistrationStage) bool {
	return forward[s] == next
}

// NextStep returns the instruction for whatever the user still has to do,
// computed from the current stage so replies stay self-documenting.
func (s RegistrationStage) NextStep() string {
	switch s {
	case StageActivated:
		return "Complete your basic information: SMS start#name#age#gender#county#town to 22141"
	case StageInitial:
		return "SMS details#education#profession#marital#religion#ethnicity to 22141"
	case StageDetailsPending, StageDescriptionPending:
		return "SMS your description starting with MYSELF to 22141"
	case StageCompleted:
		return "Registration complete! You can now search for matches with match#age#town"
	default:
		return "Continue registration on the web app"
	}
}

// Progress maps a stage onto a completion percentage (8-stage web variant).
func (s RegistrationStage) Progress() int {
	progress := map[RegistrationStage]int{
		StageActivated:      10,
		Stage1BasicInfo:     20,
		Stage2Location:      30,
		Stage3Education:     40,
		Stage4Profession:    50,
		Stage5Personal:      60,
		Stage6Ethnicity:     70,
		Stage7Description:   80,
		Stage8Photos:        90,
		StageInitial:        40,
		StageDetailsPending: 70,
		StageCompleted:      100,
	}
	return progress[s]
}

// User is one dating profile keyed by canonical phone number.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	PhoneNumber string `gorm:"uniqueIndex;size:15"`
	Name        string `gorm:"size:255"`
	Age         int
	Gender      Gender `gorm:"size:10"`
	County      string `gorm:"size:100"`
	Town        string `gorm:"size:100"`

	LevelOfEducation string `gorm:"size:100"`
	Profession       string `gorm:"size:100"`
	MaritalStatus    string `gorm:"size:50"`
	Religion         string `gorm:"size:100"`
	Ethnicity        string `gorm:"size:100"`
	SelfDescription  string

	IsActivated       bool              `gorm:"default:false"`
	IsActive          bool              `gorm:"default:true"`
	RegistrationStage RegistrationStage `gorm:"size:32;default:activated"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsRegistrationComplete() bool {
	return u.RegistrationStage == StageCompleted
}

// CanSearchMatches gates the match and interest commands.
func (u *User) CanSearchMatches() bool {
	return u.IsRegistrationComplete() && u.IsActive
}
