package injuryweb

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/courtmetrics/hoop-ingest/internal/usecase"
)

func parseSource(name, pageURL, html string, observedAt time.Time) ([]usecase.ExternalInjuryReport, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	switch name {
	case "espn":
		return parseESPN(doc, name, pageURL, observedAt), nil
	case "rotowire":
		return parseRotowire(doc, name, pageURL, observedAt), nil
	default:
		return parseGenericTable(doc, name, pageURL, observedAt), nil
	}
}

// parseESPN walks the per-team sections of the ESPN injuries page. Each
// section carries the team name in its header and a table whose columns
// include NAME, STATUS and COMMENT.
func parseESPN(doc *goquery.Document, name, pageURL string, observedAt time.Time) []usecase.ExternalInjuryReport {
	var reports []usecase.ExternalInjuryReport

	doc.Find(".ResponsiveTable").Each(func(_ int, section *goquery.Selection) {
		teamName := strings.TrimSpace(section.Find(".Table__Title").First().Text())
		cols := headerIndex(section.Find("thead th"))

		section.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			playerName := cellText(cells, cols, "NAME")
			if playerName == "" {
				return
			}
			reports = append(reports, usecase.ExternalInjuryReport{
				Source:     name,
				SourceURL:  pageURL,
				PlayerName: playerName,
				TeamName:   teamName,
				StatusRaw:  cellText(cells, cols, "STATUS"),
				Detail:     cellText(cells, cols, "COMMENT"),
				ObservedAt: observedAt,
			})
		})
	})
	return reports
}

// parseRotowire reads the single flat injury table on the Rotowire page.
func parseRotowire(doc *goquery.Document, name, pageURL string, observedAt time.Time) []usecase.ExternalInjuryReport {
	var reports []usecase.ExternalInjuryReport

	table := doc.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
		cols := headerIndex(t.Find("thead th"))
		_, hasPlayer := cols["PLAYER"]
		_, hasStatus := cols["STATUS"]
		return hasPlayer && hasStatus
	}).First()

	cols := headerIndex(table.Find("thead th"))
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		playerName := cellText(cells, cols, "PLAYER")
		if playerName == "" {
			return
		}
		detail := cellText(cells, cols, "INJURY")
		if detail == "" {
			detail = cellText(cells, cols, "NOTES")
		}
		reports = append(reports, usecase.ExternalInjuryReport{
			Source:     name,
			SourceURL:  pageURL,
			PlayerName: playerName,
			TeamName:   cellText(cells, cols, "TEAM"),
			StatusRaw:  cellText(cells, cols, "STATUS"),
			Detail:     detail,
			ObservedAt: observedAt,
		})
	})
	return reports
}

// parseGenericTable is the fallback for sources without a dedicated
// parser. It takes the first table whose header names a player column.
func parseGenericTable(doc *goquery.Document, name, pageURL string, observedAt time.Time) []usecase.ExternalInjuryReport {
	var reports []usecase.ExternalInjuryReport

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := headerIndex(table.Find("thead th"))
		playerCol, ok := cols["PLAYER"]
		if !ok {
			playerCol, ok = cols["NAME"]
		}
		if !ok {
			return true
		}

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			playerName := strings.TrimSpace(cells.Eq(playerCol).Text())
			if playerName == "" {
				return
			}
			reports = append(reports, usecase.ExternalInjuryReport{
				Source:     name,
				SourceURL:  pageURL,
				PlayerName: playerName,
				TeamName:   cellText(cells, cols, "TEAM"),
				StatusRaw:  cellText(cells, cols, "STATUS"),
				Detail:     cellText(cells, cols, "INJURY"),
				ObservedAt: observedAt,
			})
		})
		return false
	})
	return reports
}

func headerIndex(headers *goquery.Selection) map[string]int {
	cols := make(map[string]int, headers.Length())
	headers.Each(func(i int, th *goquery.Selection) {
		label := strings.ToUpper(strings.TrimSpace(th.Text()))
		if label != "" {
			cols[label] = i
		}
	})
	return cols
}

func cellText(cells *goquery.Selection, cols map[string]int, label string) string {
	idx, ok := cols[label]
	if !ok || idx >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(idx).Text())
}
