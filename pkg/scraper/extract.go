package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/timetable"
)

const (
	titleSuffix   = " - Einzelansicht"
	groupPrefix   = "Termine Gruppe: "
	unnamedGroup  = "[unbenannt]"
	tableSelector = "table[summary='Übersicht über alle Veranstaltungstermine']"
)

var (
	// ErrMissingNode is returned when a selector that must match yields
	// nothing, which indicates a changed site layout.
	ErrMissingNode = errors.New("expected markup node not found")

	// ErrBadTimeRange is returned when a parsed session would not end after
	// it starts.
	ErrBadTimeRange = errors.New("session end not after start")
)

// sourceDelay is the pause between top-level sources so the portal is not
// hammered. Tests shrink it.
var sourceDelay = 2 * time.Second

// Extract fetches and parses all configured timetable pages into a complete
// schedule. Any failure aborts the whole extraction; callers keep their
// previous schedule in that case.
func Extract(client *Client, sources []config.Source, logger *zap.Logger) (*timetable.Schedule, error) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return nil, fmt.Errorf("could not load timezone: %w", err)
	}

	var courses []timetable.Course
	for i, source := range sources {
		if i > 0 {
			time.Sleep(sourceDelay)
		}
		if err := extractSource(client, source, loc, logger, &courses); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", source.Kind, err)
		}
	}

	logger.Info("extracted schedule", zap.Int("courses", len(courses)))
	return &timetable.Schedule{Courses: courses}, nil
}

func extractSource(client *Client, source config.Source, loc *time.Location, logger *zap.Logger, courses *[]timetable.Course) error {
	doc, err := fetchDocument(client, source.URL)
	if err != nil {
		return err
	}

	title := doc.Find("div > form > h1").First()
	if title.Length() == 0 {
		return fmt.Errorf("%w: page title", ErrMissingNode)
	}
	name := strings.TrimSuffix(strings.TrimSpace(title.Text()), titleSuffix)
	kind, err := timetable.ParseCourseTitle(name)
	if err != nil {
		return err
	}
	if kind != source.Kind {
		return fmt.Errorf("page title %q resolves to %s, but the source is configured as %s", name, kind, source.Kind)
	}

	tables := doc.Find(tableSelector)
	for ti := 0; ti < tables.Length(); ti++ {
		rows := tables.Eq(ti).Find("tbody > tr:nth-child(n+2)")
		// Rows come in pairs: a summary row holding time, room and remark,
		// followed by a detail row listing the concrete dates.
		for ri := 0; ri+1 < rows.Length(); ri += 2 {
			course, err := parseRowPair(client, source.URL, rows.Eq(ri), rows.Eq(ri+1), ti, kind, loc)
			if err != nil {
				return err
			}
			if len(course.Sessions) == 0 {
				logger.Warn("found entry without any dates",
					zap.Stringer("course", course.Kind),
					zap.String("group", course.Group.String()))
			}
			mergeCourse(courses, course)
		}
	}

	return nil
}

func parseRowPair(client *Client, baseURL string, summary, detail *goquery.Selection, tableIndex int, kind timetable.CourseKind, loc *time.Location) (timetable.Course, error) {
	var course timetable.Course

	group, err := fetchGroup(client, baseURL, summary, tableIndex)
	if err != nil {
		return course, err
	}

	begin, end, err := parseTimeRange(summary)
	if err != nil {
		return course, err
	}

	room := strings.TrimSpace(summary.Find("td:nth-child(6) > a").First().Text())
	note := strings.TrimSpace(summary.Find("td:nth-child(10)").First().Text())

	var sessions []timetable.Session
	var dateErr error
	detail.Find("td > div > ul > li").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		date, err := time.ParseInLocation("02.01.2006", strings.TrimSpace(sel.Text()), loc)
		if err != nil {
			dateErr = fmt.Errorf("failed to parse date: %w", err)
			return false
		}
		start := time.Date(date.Year(), date.Month(), date.Day(), begin.Hour(), begin.Minute(), 0, 0, loc)
		stop := time.Date(date.Year(), date.Month(), date.Day(), end.Hour(), end.Minute(), 0, 0, loc)
		if !stop.After(start) {
			dateErr = fmt.Errorf("%w: %s", ErrBadTimeRange, start.Format("02.01.2006"))
			return false
		}
		sessions = append(sessions, timetable.Session{Start: start, End: stop})
		return true
	})
	if dateErr != nil {
		return course, dateErr
	}

	course = timetable.Course{
		Kind:     kind,
		Group:    group,
		Sessions: sessions,
		Room:     room,
		Note:     note,
	}
	return course, nil
}

// fetchGroup follows the expand link of a summary row and reads the group
// caption of the matching table on the expanded page.
func fetchGroup(client *Client, baseURL string, summary *goquery.Selection, tableIndex int) (timetable.Group, error) {
	href, ok := summary.Find("td:first-child > a:first-child").First().Attr("href")
	if !ok {
		return timetable.NoGroup, fmt.Errorf("%w: expand link", ErrMissingNode)
	}

	link, err := resolveURL(baseURL, href)
	if err != nil {
		return timetable.NoGroup, err
	}
	doc, err := fetchDocument(client, link)
	if err != nil {
		return timetable.NoGroup, err
	}

	table := doc.Find(tableSelector).Eq(tableIndex)
	if table.Length() == 0 {
		return timetable.NoGroup, fmt.Errorf("%w: timetable on expanded page", ErrMissingNode)
	}
	caption := table.Find("caption.t_capt").First()
	if caption.Length() == 0 {
		return timetable.NoGroup, fmt.Errorf("%w: group caption", ErrMissingNode)
	}

	text := strings.TrimPrefix(strings.TrimSpace(caption.Text()), groupPrefix)
	if text == unnamedGroup {
		return timetable.NoGroup, nil
	}
	return timetable.ParseGroupCaption(text)
}

// parseTimeRange parses the "HH:MM bis HH:MM" cell of a summary row. The
// portal pads the cell with non-breaking spaces, which are normalized first.
func parseTimeRange(summary *goquery.Selection) (begin, end time.Time, err error) {
	cell := summary.Find("td:nth-child(3)").First()
	if cell.Length() == 0 {
		return begin, end, fmt.Errorf("%w: time cell", ErrMissingNode)
	}

	text := strings.ReplaceAll(cell.Text(), "\u00a0", " ")
	parts := strings.Split(strings.TrimSpace(text), " bis ")
	if len(parts) != 2 {
		return begin, end, fmt.Errorf("malformed time range %q", strings.TrimSpace(text))
	}
	begin, err = time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return begin, end, fmt.Errorf("failed to parse time: %w", err)
	}
	end, err = time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return begin, end, fmt.Errorf("failed to parse time: %w", err)
	}
	return begin, end, nil
}

// mergeCourse appends a course unless an entry with the same kind, group and
// sessions already exists; in that case only the room is concatenated.
func mergeCourse(courses *[]timetable.Course, course timetable.Course) {
	for i := range *courses {
		existing := &(*courses)[i]
		if existing.SameSlot(&course) {
			if course.Room != "" {
				if existing.Room != "" {
					existing.Room += " & " + course.Room
				} else {
					existing.Room = course.Room
				}
			}
			return
		}
	}
	*courses = append(*courses, course)
}

func fetchDocument(client *Client, url string) (*goquery.Document, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", url, err)
	}
	return doc, nil
}

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
