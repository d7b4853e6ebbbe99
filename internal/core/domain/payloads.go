package domain

import (
	"strconv"
	"strings"
)

// Payload is a kind-specific form submitted by a dashboard.
type Payload interface {
	Kind() Kind
	Fields() map[string]string
}

type OutpassPayload struct {
	Name               string `json:"name" validate:"notblank"`
	ClassName          string `json:"className"`
	RoomNo             string `json:"roomNo" validate:"notblank"`
	FromDate           string `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate             string `json:"toDate" validate:"required,datetime=2006-01-02"`
	Reason             string `json:"reason" validate:"notblank"`
	GuardianName       string `json:"guardianName" validate:"notblank"`
	SuperintendentName string `json:"superintendentName"`
}

func (OutpassPayload) Kind() Kind { return KindOutpass }

func (p OutpassPayload) Fields() map[string]string {
	return trimmed(map[string]string{
		"name":               p.Name,
		"className":          p.ClassName,
		"roomNo":             p.RoomNo,
		"fromDate":           p.FromDate,
		"toDate":             p.ToDate,
		"reason":             p.Reason,
		"guardianName":       p.GuardianName,
		"superintendentName": p.SuperintendentName,
	})
}

type ComplaintPayload struct {
	Subject string `json:"subject" validate:"notblank"`
	Message string `json:"message" validate:"notblank"`
	// Name and Room are copied from the resident profile when left empty.
	Name string `json:"name"`
	Room string `json:"room"`
}

func (ComplaintPayload) Kind() Kind { return KindComplaint }

func (p ComplaintPayload) Fields() map[string]string {
	return trimmed(map[string]string{
		"subject": p.Subject,
		"message": p.Message,
		"name":    p.Name,
		"room":    p.Room,
	})
}

type ApplicationPayload struct {
	CandidateName   string `json:"candidateName" validate:"notblank"`
	CandidateAge    string `json:"candidateAge"`
	ParentName      string `json:"parentName" validate:"notblank"`
	ParentServiceID string `json:"parentServiceId" validate:"notblank"`
	Phone           string `json:"phone" validate:"required,phone"`
	PreferredDate   string `json:"preferredDate" validate:"required"`
	PreferredTime   string `json:"preferredTime" validate:"required"`
	RoomType        string `json:"roomType"`
	AdditionalNotes string `json:"additionalNotes"`
	AgreeVisitTerms bool   `json:"agreeVisitTerms" validate:"required"`
}

func (ApplicationPayload) Kind() Kind { return KindApplication }

func (p ApplicationPayload) Fields() map[string]string {
	roomType := p.RoomType
	if strings.TrimSpace(roomType) == "" {
		roomType = "single"
	}
	return trimmed(map[string]string{
		"candidateName":   p.CandidateName,
		"candidateAge":    p.CandidateAge,
		"parentName":      p.ParentName,
		"parentServiceId": p.ParentServiceID,
		"phone":           p.Phone,
		"preferredDate":   p.PreferredDate,
		"preferredTime":   p.PreferredTime,
		"roomType":        roomType,
		"additionalNotes": p.AdditionalNotes,
		"agreeVisitTerms": strconv.FormatBool(p.AgreeVisitTerms),
	})
}

type AppointmentPayload struct {
	Purpose         string `json:"purpose" validate:"notblank"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	Notes           string `json:"notes"`
	Name            string `json:"name"`
	Room            string `json:"room"`
}

func (AppointmentPayload) Kind() Kind { return KindAppointment }

func (p AppointmentPayload) Fields() map[string]string {
	return trimmed(map[string]string{
		"purpose":         p.Purpose,
		"appointmentDate": p.AppointmentDate,
		"notes":           p.Notes,
		"name":            p.Name,
		"room":            p.Room,
	})
}

// NoticePayload is used for both resident notices and public announcements.
type NoticePayload struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
}

func (p NoticePayload) Fields() map[string]string {
	return trimmed(map[string]string{
		"title":       p.Title,
		"description": p.Description,
	})
}

type SignUpRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	SecretKey       string `json:"secret_key"`
	CaptchaID       string `json:"captcha_id"`
	Captcha         string `json:"captcha"`
}

type SignInRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	CaptchaID string `json:"captcha_id"`
	Captcha   string `json:"captcha"`
}

type AdminSignInRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AdminKey  string `json:"admin_key" validate:"required"`
	CaptchaID string `json:"captcha_id"`
	Captcha   string `json:"captcha"`
}

// Profile holds the maintenance details a resident keeps on their record.
type Profile struct {
	Name      string   `json:"name" validate:"notblank"`
	Room      string   `json:"room" validate:"notblank"`
	Roommates []string `json:"roommates" validate:"max=3"`
}

func trimmed(m map[string]string) map[string]string {
	for k, v := range m {
		m[k] = strings.TrimSpace(v)
	}
	return m
}
