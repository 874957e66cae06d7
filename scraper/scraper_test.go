package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"cardbase/config"
)

const detailPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"></head><body>
<div class="cardDetailPageContent">
  <div class="cardImage"><img src="../images/cards/card/%[1]s.png?250101" alt=""></div>
  <div class="cardNo">%[1]s</div>
  <div class="rarity">LR</div>
  <h1 class="cardName">%[2]s</h1>
  <dl>
    <dd class="dataTxt">4</dd>
    <dd class="dataTxt">3</dd>
    <dd class="dataTxt">青</dd>
    <dd class="dataTxt">UNIT</dd>
    <dd class="dataTxt">【配備】カードを1枚引く。<br><br>（このカードは配備できる）<br>【攻撃時】相手のユニット1枚を破壊する。</dd>
    <dd class="dataTxt">宇宙/地球</dd>
    <dd class="dataTxt">(地球連邦)</dd>
    <dd class="dataTxt">【アムロ・レイ】</dd>
    <dd class="dataTxt">3</dd>
    <dd class="dataTxt">4</dd>
    <dd class="dataTxt">-</dd>
    <dd class="dataTxt"> 鉄血の残響 </dd>
  </dl>
</div>
</body></html>`

const notFoundPage = `<html><body><div class="cardDetailPageContent"><h1 class="cardName">該当するカードが見つかりません</h1></div></body></html>`

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000IHDR")

func TestParseDetail(t *testing.T) {
	page := fmt.Sprintf(detailPage, "ST01-001", "ガンダム")
	row, found, err := ParseDetail("ST01-001", "ST01", strings.NewReader(page), "text/html; charset=utf-8")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "ガンダム", row.Name)
	assert.Equal(t, "LR", row.Rarity)
	assert.Equal(t, "ST01", row.ExpansionSet)
	assert.Equal(t, 4, row.Level)
	assert.Equal(t, 3, row.Cost)
	assert.Equal(t, "青", row.Color)
	assert.Equal(t, "UNIT", row.Type)
	assert.Equal(t, "【配備】カードを1枚引く。\n（このカードは配備できる）\n【攻撃時】相手のユニット1枚を破壊する。", row.Text)
	assert.Equal(t, "宇宙/地球", row.Zone)
	assert.Equal(t, "(地球連邦)", row.Traits)
	assert.Equal(t, "【アムロ・レイ】", row.Link)
	assert.Equal(t, 3, row.AP)
	assert.Equal(t, 4, row.HP)
	assert.Equal(t, "鉄血の残響", row.SetName)
	assert.Equal(t, "../images/cards/card/ST01-001.png?250101", row.ImageSrc)

	_, found, err = ParseDetail("ST01-999", "ST01", strings.NewReader(notFoundPage), "text/html")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = ParseDetail("ST01-999", "ST01", strings.NewReader("<html></html>"), "text/html")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseDetailShiftJIS(t *testing.T) {
	page := strings.Replace(fmt.Sprintf(detailPage, "GD01-010", "シャア専用ザク"), `charset="utf-8"`, `charset="Shift_JIS"`, 1)
	encoded, err := japanese.ShiftJIS.NewEncoder().String(page)
	require.NoError(t, err)

	row, found, err := ParseDetail("GD01-010", "GD01", strings.NewReader(encoded), "text/html; charset=Shift_JIS")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "シャア専用ザク", row.Name)
	assert.Equal(t, "宇宙/地球", row.Zone)
}

func TestImageURL(t *testing.T) {
	base := "https://www.gundam-gcg.com/jp/"
	assert.Equal(t, "https://www.gundam-gcg.com/jp/images/cards/card/ST01-001.webp",
		ImageURL(base, "../images/cards/card/ST01-001.webp?250101"))
	assert.Equal(t, "https://cdn.example.com/a.png", ImageURL(base, "https://cdn.example.com/a.png?x=1"))
	assert.Equal(t, "", ImageURL(base, " "))
}

// fakeSite ST01 有 001/002，ST02 有 001，其余为查无此卡页
func fakeSite(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	imageHits := 0
	cards := map[string]string{
		"ST01-001": "ガンダム",
		"ST01-002": "ザク",
		"ST01-007": "ジム",
		"ST02-001": "ウイングガンダム",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/jp/cards/detail.php", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("detailSearch")
		assert.Equal(t, "https://www.gundam-gcg.com/", r.Header.Get("Referer"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if id == "ST02-002" {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		name, ok := cards[id]
		if !ok {
			fmt.Fprint(w, notFoundPage)
			return
		}
		fmt.Fprintf(w, detailPage, id, name)
	})
	mux.HandleFunc("/jp/images/cards/card/", func(w http.ResponseWriter, r *http.Request) {
		imageHits++
		if strings.Contains(r.URL.Path, "ST01-002") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &imageHits
}

func testConfig(srv *httptest.Server) config.ScraperConfig {
	cfg := config.Default().Scraper
	cfg.DetailURL = srv.URL + "/jp/cards/detail.php?detailSearch="
	cfg.ImageBase = srv.URL + "/jp/"
	cfg.Delay = 0
	cfg.Timeout = config.Duration(5 * time.Second)
	cfg.Sets = []config.ScrapeSet{{Prefix: "ST01", Count: 10}, {Prefix: "ST02", Count: 5}}
	return cfg
}

func TestRun(t *testing.T) {
	srv, imageHits := fakeSite(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ST02-001.png"), pngBytes, 0o644))

	s := New(testConfig(srv), dir, zap.NewNop())
	var rows []Row
	stats, err := s.Run(context.Background(), func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	// ST01-007 在连续三次未命中之后，不会被采集
	assert.Equal(t, []string{"ST01-001", "ST01-002", "ST02-001"}, ids)
	assert.Equal(t, Stats{Fetched: 3, Missed: 6, Images: 1, ImageErrors: 1}, stats)

	assert.Equal(t, "ST01-001.png", rows[0].ImageURL)
	assert.FileExists(t, filepath.Join(dir, "ST01-001.png"))
	assert.Empty(t, rows[1].ImageURL, "failed download leaves image empty")
	assert.Equal(t, "ST02-001.png", rows[2].ImageURL)
	assert.Equal(t, 2, *imageHits, "existing image is not downloaded again")
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, _ := fakeSite(t)
	cfg := testConfig(srv)
	cfg.Delay = config.Duration(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(cfg, t.TempDir(), zap.NewNop())
	stats, err := s.Run(ctx, func(Row) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Fetched)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)

	row := Row{SetName: "鉄血の残響"}
	row.ID, row.Name, row.Level, row.Text, row.ImageURL = "ST01-001", "ガンダム", 4, "一行目\n二行目", "ST01-001.webp"
	require.NoError(t, w.Write(row))
	require.NoError(t, w.Flush())

	out := buf.String()
	require.True(t, strings.HasPrefix(out, BOM))
	lines := strings.SplitN(strings.TrimPrefix(out, BOM), "\n", 2)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "ST01-001,ガンダム,,,4,0,,,\"一行目\n二行目\",,,,0,0,鉄血の残響,ST01-001.webp\n", lines[1])
}
