package scraper

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// rowPair renders one summary/detail row pair the way the LSF overview
// table lays them out. The time cell uses non-breaking spaces like the real
// portal does.
func rowPair(expandPath, timeRange, room, note string, dates []string) string {
	var items string
	for _, date := range dates {
		items += fmt.Sprintf("<li>%s</li>", date)
	}
	return fmt.Sprintf(`
		<tr>
			<td><a href="%s">anzeigen</a></td>
			<td>Mi.</td>
			<td>%s</td>
			<td>woch</td>
			<td></td>
			<td><a href="#">%s</a></td>
			<td></td>
			<td></td>
			<td></td>
			<td>%s</td>
		</tr>
		<tr>
			<td><div><ul>%s</ul></div></td>
		</tr>`, expandPath, timeRange, room, note, items)
}

func indexPage(title, rows string) string {
	return fmt.Sprintf(`<html><body><div><form>
		<h1>%s - Einzelansicht</h1>
		<table summary="Übersicht über alle Veranstaltungstermine">
			<tbody>
				<tr><th>Kopfzeile</th></tr>
				%s
			</tbody>
		</table>
	</form></div></body></html>`, title, rows)
}

func expandPage(caption string) string {
	return fmt.Sprintf(`<html><body>
		<table summary="Übersicht über alle Veranstaltungstermine">
			<caption class="t_capt">Termine Gruppe: %s</caption>
			<tbody><tr><th>Kopfzeile</th></tr></tbody>
		</table>
	</body></html>`, caption)
}

func servePages(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func noDelay(t *testing.T) {
	t.Helper()
	original := sourceDelay
	sourceDelay = 0
	t.Cleanup(func() { sourceDelay = original })
}

func TestExtract(t *testing.T) {
	noDelay(t)

	rows := rowPair("/lecture", "08:00&nbsp;bis&nbsp;09:30", "Raum 1", "Online-Vorlesung", []string{"04.11.2020", "11.11.2020"}) +
		rowPair("/exercise", "10:00&nbsp;bis&nbsp;11:30", "Raum 2", "", []string{"04.11.2020"})
	server := servePages(t, map[string]string{
		"/index":    indexPage("AIN1 Mathematik 1", rows),
		"/lecture":  expandPage("[unbenannt]"),
		"/exercise": expandPage("Gruppe 2"),
	})

	schedule, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(schedule.Courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(schedule.Courses))
	}

	lecture := schedule.Courses[0]
	if lecture.Kind != timetable.Mathematik1 {
		t.Errorf("expected Mathematik1, got %v", lecture.Kind)
	}
	if lecture.Group != timetable.NoGroup {
		t.Errorf("expected lecture without group, got %v", lecture.Group)
	}
	if lecture.Room != "Raum 1" {
		t.Errorf("expected room 'Raum 1', got %q", lecture.Room)
	}
	if lecture.Note != "Online-Vorlesung" {
		t.Errorf("expected note 'Online-Vorlesung', got %q", lecture.Note)
	}
	if len(lecture.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(lecture.Sessions))
	}

	loc, _ := time.LoadLocation("Europe/Berlin")
	wantStart := time.Date(2020, 11, 4, 8, 0, 0, 0, loc)
	wantEnd := time.Date(2020, 11, 4, 9, 30, 0, 0, loc)
	if !lecture.Sessions[0].Start.Equal(wantStart) {
		t.Errorf("expected start %v, got %v", wantStart, lecture.Sessions[0].Start)
	}
	if !lecture.Sessions[0].End.Equal(wantEnd) {
		t.Errorf("expected end %v, got %v", wantEnd, lecture.Sessions[0].End)
	}

	exercise := schedule.Courses[1]
	if exercise.Group != timetable.Gruppe2 {
		t.Errorf("expected Gruppe2, got %v", exercise.Group)
	}
	if len(exercise.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(exercise.Sessions))
	}
}

func TestExtractMergesDuplicateEntries(t *testing.T) {
	noDelay(t)

	// Two raw entries with identical kind, group and dates but different
	// rooms must collapse into one course with the rooms joined.
	rows := rowPair("/expand", "08:00&nbsp;bis&nbsp;09:30", "Raum 1", "", []string{"04.11.2020"}) +
		rowPair("/expand", "08:00&nbsp;bis&nbsp;09:30", "Raum 2", "", []string{"04.11.2020"})
	server := servePages(t, map[string]string{
		"/index":  indexPage("AIN1 Digitaltechnik", rows),
		"/expand": expandPage("[unbenannt]"),
	})

	schedule, err := Extract(NewClient(), []config.Source{{Kind: timetable.Digitaltechnik, URL: server.URL + "/index"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(schedule.Courses) != 1 {
		t.Fatalf("expected duplicate entries to be merged into 1 course, got %d", len(schedule.Courses))
	}
	if schedule.Courses[0].Room != "Raum 1 & Raum 2" {
		t.Errorf("expected merged room 'Raum 1 & Raum 2', got %q", schedule.Courses[0].Room)
	}
}

func TestExtractUnknownCourseTitle(t *testing.T) {
	noDelay(t)

	server := servePages(t, map[string]string{
		"/index": indexPage("AIN1 Quantenmechanik", ""),
	})

	schedule, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if !errors.Is(err, timetable.ErrUnknownCourse) {
		t.Fatalf("expected ErrUnknownCourse, got %v", err)
	}
	if schedule != nil {
		t.Errorf("expected no schedule on failed extraction")
	}
}

func TestExtractUnknownGroupCaption(t *testing.T) {
	noDelay(t)

	rows := rowPair("/expand", "08:00&nbsp;bis&nbsp;09:30", "", "", []string{"04.11.2020"})
	server := servePages(t, map[string]string{
		"/index":  indexPage("AIN1 Softwaremodellierung", rows),
		"/expand": expandPage("Gruppe 7"),
	})

	_, err := Extract(NewClient(), []config.Source{{Kind: timetable.Softwaremodellierung, URL: server.URL + "/index"}}, zap.NewNop())
	if !errors.Is(err, timetable.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestExtractRejectsReversedTimeRange(t *testing.T) {
	noDelay(t)

	rows := rowPair("/expand", "09:30&nbsp;bis&nbsp;08:00", "", "", []string{"04.11.2020"})
	server := servePages(t, map[string]string{
		"/index":  indexPage("AIN1 Mathematik 1", rows),
		"/expand": expandPage("[unbenannt]"),
	})

	_, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if !errors.Is(err, ErrBadTimeRange) {
		t.Fatalf("expected ErrBadTimeRange, got %v", err)
	}
}

func TestExtractToleratesEntryWithoutDates(t *testing.T) {
	noDelay(t)

	rows := rowPair("/expand", "08:00&nbsp;bis&nbsp;09:30", "Raum 1", "", nil)
	server := servePages(t, map[string]string{
		"/index":  indexPage("AIN1 Mathematik 1", rows),
		"/expand": expandPage("[unbenannt]"),
	})

	schedule, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected entry without dates to be tolerated, got error: %v", err)
	}
	if len(schedule.Courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(schedule.Courses))
	}
	if len(schedule.Courses[0].Sessions) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(schedule.Courses[0].Sessions))
	}
}

func TestExtractMalformedDate(t *testing.T) {
	noDelay(t)

	rows := rowPair("/expand", "08:00&nbsp;bis&nbsp;09:30", "", "", []string{"morgen"})
	server := servePages(t, map[string]string{
		"/index":  indexPage("AIN1 Mathematik 1", rows),
		"/expand": expandPage("[unbenannt]"),
	})

	_, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestExtractMissingTitle(t *testing.T) {
	noDelay(t)

	server := servePages(t, map[string]string{
		"/index": "<html><body><p>Wartungsarbeiten</p></body></html>",
	})

	_, err := Extract(NewClient(), []config.Source{{Kind: timetable.Mathematik1, URL: server.URL + "/index"}}, zap.NewNop())
	if !errors.Is(err, ErrMissingNode) {
		t.Fatalf("expected ErrMissingNode, got %v", err)
	}
}
