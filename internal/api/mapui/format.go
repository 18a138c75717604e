package mapui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeblew999/plat-iftar/internal/service"
)

var banglaMonths = [12]string{
	"জানুয়ারী", "ফেব্রুয়ারী", "মার্চ", "এপ্রিল", "মে", "জুন",
	"জুলাই", "আগস্ট", "সেপ্টেম্বর", "অক্টোবর", "নভেম্বর", "ডিসেম্বর",
}

var banglaDigits = strings.NewReplacer(
	"0", "০", "1", "১", "2", "২", "3", "৩", "4", "৪",
	"5", "৫", "6", "৬", "7", "৭", "8", "৮", "9", "৯",
)

// dayMonth formats t as "1 March", in Bangla numerals and month names
// unless lang is "en".
func dayMonth(t time.Time, lang string) string {
	if lang == "en" {
		return fmt.Sprintf("%d %s", t.Day(), t.Month())
	}
	return banglaDigits.Replace(strconv.Itoa(t.Day())) + " " + banglaMonths[t.Month()-1]
}

// SpotView is a location decorated for the list and popup templates.
type SpotView struct {
	service.Location
	TypeLabel     string
	TypeEmoji     string
	AudienceLabel string
	Badge         string
	AddedOn       string
}

func (h *Handler) spot(l service.Location) SpotView {
	c := h.locations.Catalog()
	return SpotView{
		Location:      l,
		TypeLabel:     c.TypeLabel(l.IftarType),
		TypeEmoji:     c.Emoji(l.IftarType),
		AudienceLabel: c.AudienceLabel(l.Audience),
		Badge:         c.Badge(l.Audience),
		AddedOn:       fmt.Sprintf(h.msgs.AddedOn, dayMonth(l.CreatedAt.In(h.tz), h.lang)),
	}
}
