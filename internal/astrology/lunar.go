package astrology

import (
	"fmt"
	"time"
)

// lunarTable encodes the Chinese lunar calendar for 1900-2100. Each entry
// packs the month lengths and leap month of one lunar year: bits 4-16 flag
// 30-day months, bits 0-3 hold the leap month number (0 = none), and bit 16
// gives the leap month 30 days when set.
var lunarTable = [201]int{
	0x04bd8, 0x04ae0, 0x0a570, 0x054d5, 0x0d260, 0x0d950, 0x16554, 0x056a0, 0x09ad0, 0x055d2,
	0x04ae0, 0x0a5b6, 0x0a4d0, 0x0d250, 0x1d255, 0x0b540, 0x0d6a0, 0x0ada2, 0x095b0, 0x14977,
	0x04970, 0x0a4b0, 0x0b4b5, 0x06a50, 0x06d40, 0x1ab54, 0x02b60, 0x09570, 0x052f2, 0x04970,
	0x06566, 0x0d4a0, 0x0ea50, 0x06e95, 0x05ad0, 0x02b60, 0x186e3, 0x092e0, 0x1c8d7, 0x0c950,
	0x0d4a0, 0x1d8a6, 0x0b550, 0x056a0, 0x1a5b4, 0x025d0, 0x092d0, 0x0d2b2, 0x0a950, 0x0b557,
	0x06ca0, 0x0b550, 0x15355, 0x04da0, 0x0a5b0, 0x14573, 0x052b0, 0x0a9a8, 0x0e950, 0x06aa0,
	0x0aea6, 0x0ab50, 0x04b60, 0x0aae4, 0x0a570, 0x05260, 0x0f263, 0x0d950, 0x05b57, 0x056a0,
	0x096d0, 0x04dd5, 0x04ad0, 0x0a4d0, 0x0d4d4, 0x0d250, 0x0d558, 0x0b540, 0x0b6a0, 0x195a6,
	0x095b0, 0x049b0, 0x0a974, 0x0a4b0, 0x0b27a, 0x06a50, 0x06d40, 0x0af46, 0x0ab60, 0x09570,
	0x04af5, 0x04970, 0x064b0, 0x074a3, 0x0ea50, 0x06b58, 0x05ac0, 0x0ab60, 0x096d5, 0x092e0,
	0x0c960, 0x0d954, 0x0d4a0, 0x0da50, 0x07552, 0x056a0, 0x0abb7, 0x025d0, 0x092d0, 0x0cab5,
	0x0a950, 0x0b4a0, 0x0baa4, 0x0ad50, 0x055d9, 0x04ba0, 0x0a5b0, 0x15176, 0x052b0, 0x0a930,
	0x07954, 0x06aa0, 0x0ad50, 0x05b52, 0x04b60, 0x0a6e6, 0x0a4e0, 0x0d260, 0x0ea65, 0x0d530,
	0x05aa0, 0x076a3, 0x096d0, 0x04afb, 0x04ad0, 0x0a4d0, 0x1d0b6, 0x0d250, 0x0d520, 0x0dd45,
	0x0b5a0, 0x056d0, 0x055b2, 0x049b0, 0x0a577, 0x0a4b0, 0x0aa50, 0x1b255, 0x06d20, 0x0ada0,
	0x14b63, 0x09370, 0x049f8, 0x04970, 0x064b0, 0x168a6, 0x0ea50, 0x06b20, 0x1a6c4, 0x0aae0,
	0x0a2e0, 0x0d2e3, 0x0c960, 0x0d557, 0x0d4a0, 0x0da50, 0x05d55, 0x056a0, 0x0a6d0, 0x055d4,
	0x052d0, 0x0a9b8, 0x0a950, 0x0b4a0, 0x0b6a6, 0x0ad50, 0x055a0, 0x0aba4, 0x0a5b0, 0x052b0,
	0x0b273, 0x06930, 0x07337, 0x06aa0, 0x0ad50, 0x14b55, 0x04b60, 0x0a570, 0x054e4, 0x0d160,
	0x0e968, 0x0d520, 0x0daa0, 0x16aa6, 0x056d0, 0x04ae0, 0x0a9d4, 0x0a2d0, 0x0d150, 0x0f252,
	0x0d520,
}

// lunarEpoch is lunar 1900-01-01 in the Gregorian calendar.
var lunarEpoch = time.Date(1900, 1, 31, 0, 0, 0, 0, time.UTC)

func lunarYearDays(year int) int {
	sum := 348
	info := lunarTable[year-1900]
	for mask := 0x8000; mask > 0x8; mask >>= 1 {
		if info&mask != 0 {
			sum++
		}
	}
	return sum + lunarLeapDays(year)
}

// lunarLeapMonth returns the leap month of the year (1-12), or 0 when the
// year has no leap month.
func lunarLeapMonth(year int) int {
	return lunarTable[year-1900] & 0xf
}

func lunarLeapDays(year int) int {
	if lunarLeapMonth(year) == 0 {
		return 0
	}
	if lunarTable[year-1900]&0x10000 != 0 {
		return 30
	}
	return 29
}

func lunarMonthDays(year, month int) int {
	if lunarTable[year-1900]&(0x10000>>uint(month)) != 0 {
		return 30
	}
	return 29
}

// GregorianToLunar converts a Gregorian date to its lunar equivalent,
// formatted as "YYYY-MM-DD" with the lunar year, month and day. Dates
// outside the 1900-2100 table fall back to the Gregorian date so record
// creation never fails on an exotic birth date.
func GregorianToLunar(date time.Time) string {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Sub(lunarEpoch).Hours() / 24)
	if offset < 0 || day.Year() > 2100 {
		return day.Format("2006-01-02")
	}

	year := 1900
	for year <= 2100 {
		days := lunarYearDays(year)
		if offset < days {
			break
		}
		offset -= days
		year++
	}
	if year > 2100 {
		return day.Format("2006-01-02")
	}

	// A leap month repeats its month number and follows the regular month.
	leap := lunarLeapMonth(year)
	month := 1
	for month <= 12 {
		days := lunarMonthDays(year, month)
		if offset < days {
			break
		}
		offset -= days

		if month == leap {
			leapLen := lunarLeapDays(year)
			if offset < leapLen {
				break
			}
			offset -= leapLen
		}
		month++
	}

	return fmt.Sprintf("%d-%02d-%02d", year, month, offset+1)
}
