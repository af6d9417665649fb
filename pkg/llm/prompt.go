package llm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Per-field character budgets for the page content sections. Fixed character
// budgets keep the upstream prompt size bounded and deterministic without
// token counting.
const (
	maxTitleChars  = 200
	maxHeadChars   = 500
	maxFormChars   = 500
	maxScriptChars = 500
)

const notAvailable = "tidak tersedia"

const urlSystemPrompt = "Anda adalah seorang pakar keamanan siber dan analis konten web. " +
	"Tugas utama Anda adalah menganalisis data yang diekstrak dari halaman web dan memberikan dua hal: " +
	"1. Ringkasan singkat mengenai isi dan tujuan halaman web tersebut. " +
	"2. Analisis risiko phishing: Tentukan apakah halaman tersebut berpotensi phishing atau tidak, beserta alasan yang jelas dan ringkas. " +
	"Seluruh respons Anda harus dalam Bahasa Indonesia yang baku, jelas, dan mudah dipahami." +
	"Hindari penggunaan bahasa campur, singkatan tidak resmi, atau rekomendasi tambahan. " +
	"Fokus pada ringkasan dan analisis phishing saja."

const urlPredictionSystemPrompt = "Anda adalah seorang pakar keamanan siber dan analis konten web. " +
	"Sebuah sistem klasifikasi telah memberikan prediksi awal untuk halaman ini; gunakan informasi tersebut sebagai salah satu sinyal dalam analisis Anda, " +
	"tetapi jangan menyebutkan istilah teknis seperti \"confidence\", \"model\", atau \"machine learning\" dalam jawaban Anda. " +
	"Berikan: " +
	"1. Ringkasan singkat mengenai isi dan tujuan halaman web tersebut. " +
	"2. Analisis risiko phishing beserta alasan yang jelas dan ringkas. " +
	"3. Konten yang mencurigakan pada halaman tersebut, jika ada. " +
	"Jika kesimpulan Anda adalah phishing, tambahkan bagian rekomendasi tindakan untuk pengguna. " +
	"Seluruh respons Anda harus dalam Bahasa Indonesia yang baku, jelas, dan mudah dipahami."

const emailSystemPrompt = "Anda adalah seorang pakar keamanan siber yang berfokus pada analisis alamat email. " +
	"Tugas utama Anda: " +
	"1. Tentukan apakah alamat email tersebut berpotensi phishing atau tidak. " +
	"2. Jelaskan karakteristik teknis alamat email yang mendukung kesimpulan Anda. " +
	"3. Berikan kesimpulan apakah alamat email tersebut dapat dipercaya. " +
	"Seluruh respons Anda harus dalam Bahasa Indonesia yang baku, jelas, dan mudah dipahami."

const urlOutputFormat = "Mohon berikan analisis Anda dalam format berikut, selalu dalam Bahasa Indonesia:\n\n" +
	"Ringkasan Halaman:\n[Ringkasan singkat tentang isi halaman]\n\n" +
	"Analisis Phishing:\n[Kesimpulan apakah halaman ini phishing atau bukan, diikuti dengan alasan-alasan utama yang mendukung kesimpulan tersebut.]"

const urlPredictionOutputFormat = "Mohon berikan analisis Anda dalam format berikut, selalu dalam Bahasa Indonesia:\n\n" +
	"Ringkasan Halaman:\n[Ringkasan singkat tentang isi halaman]\n\n" +
	"Analisis Phishing:\n[Kesimpulan apakah halaman ini phishing atau bukan, beserta alasan utama]\n\n" +
	"Konten Mencurigakan:\n[Bagian halaman yang mencurigakan, jika ada]\n\n" +
	"Rekomendasi Tindakan (hanya jika phishing):\n[Langkah yang sebaiknya dilakukan pengguna]"

const emailOutputFormat = "Mohon berikan analisis Anda dalam format berikut, selalu dalam Bahasa Indonesia:\n\n" +
	"Analisis Alamat Email:\n[Karakteristik alamat email dan indikasi phishing]\n\n" +
	"Kesimpulan:\n[Apakah alamat email ini dapat dipercaya atau tidak, beserta alasannya]"

// PromptOptions controls the parts of rendering that are deployment
// configuration rather than input data.
type PromptOptions struct {
	// IncludeEmailFeatures adds the technical-feature bullet list to the
	// email variant. Off by default.
	IncludeEmailFeatures bool
}

// BuildPrompt selects a template variant from the shape of the normalized
// record and renders it. input_type "email" (any case) selects the email
// variant; records carrying prediction fields get the prediction-aware URL
// variant; everything else gets the plain URL variant.
func BuildPrompt(record map[string]any, opts PromptOptions) Prompt {
	if InputType(record) == "email" {
		return emailPrompt(record, opts.IncludeEmailFeatures)
	}
	if hasPrediction(record) {
		return urlPredictionPrompt(record)
	}
	return urlPrompt(record)
}

// InputType reports the template family for a normalized record, "url" or
// "email". The match on input_type is case-insensitive.
func InputType(record map[string]any) string {
	if s, ok := record["input_type"].(string); ok && strings.EqualFold(s, "email") {
		return "email"
	}
	return "url"
}

func hasPrediction(record map[string]any) bool {
	_, p := record["prediction"]
	_, f := record["final_prediction"]
	return p || f
}

func urlPrompt(record map[string]any) Prompt {
	user := fmt.Sprintf(
		"Berikut adalah data yang diekstrak dari sebuah halaman web:\n\n%s\n\n%s",
		pageContent(record), urlOutputFormat)
	return Prompt{System: urlSystemPrompt, User: user}
}

func urlPredictionPrompt(record map[string]any) Prompt {
	var sb strings.Builder
	sb.WriteString("Informasi prediksi awal:\n")
	sb.WriteString(fmt.Sprintf("Prediksi awal: %s\n", strings.ToUpper(stringField(record, "prediction"))))
	sb.WriteString(fmt.Sprintf("Confidence awal: %s%%\n", formatPercent(floatField(record, "confidence"))))
	sb.WriteString(fmt.Sprintf("Confidence disesuaikan: %s%%\n", formatPercent(floatField(record, "adjusted_confidence"))))
	sb.WriteString(fmt.Sprintf("Domain terpercaya: %s\n", yaTidak(boolField(record, "trusted_domain"))))
	sb.WriteString(fmt.Sprintf("Prediksi akhir: %s\n\n", strings.ToUpper(stringField(record, "final_prediction"))))
	sb.WriteString(fmt.Sprintf("Berikut adalah data yang diekstrak dari sebuah halaman web:\n\n%s\n\n", pageContent(record)))
	sb.WriteString(urlPredictionOutputFormat)
	return Prompt{System: urlPredictionSystemPrompt, User: sb.String()}
}

func emailPrompt(record map[string]any, includeFeatures bool) Prompt {
	var sb strings.Builder
	sb.WriteString("Berikut adalah data alamat email yang dianalisis:\n\n")
	sb.WriteString(fmt.Sprintf("Alamat Email: %s\n", stringField(record, "value")))
	sb.WriteString(fmt.Sprintf("Prediksi awal: %s\n", strings.ToUpper(stringField(record, "prediction"))))
	sb.WriteString(fmt.Sprintf("Confidence awal: %s%%\n", formatPercent(floatField(record, "confidence"))))
	sb.WriteString(fmt.Sprintf("Confidence disesuaikan: %s%%\n", formatPercent(floatField(record, "adjusted_confidence"))))
	sb.WriteString(fmt.Sprintf("Domain terpercaya: %s\n", yaTidak(boolField(record, "trusted_domain"))))
	if includeFeatures {
		if block := featureBlock(record); block != "" {
			sb.WriteString("\n")
			sb.WriteString(block)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(emailOutputFormat)
	return Prompt{System: emailSystemPrompt, User: sb.String()}
}

// pageContent renders the four truncated content sections under their fixed
// headers and strips surrounding whitespace, so a record with only a title
// still starts at "Judul Halaman".
func pageContent(record map[string]any) string {
	titles := limitText(record["titles"], maxTitleChars)
	heads := limitText(record["heads"], maxHeadChars)
	forms := limitText(record["forms"], maxFormChars)
	scripts := limitText(record["scripts"], maxScriptChars)

	return strings.TrimSpace(fmt.Sprintf(
		"Judul Halaman (Title):\n%s\n\nBagian Head:\n%s\n\nFormulir (Forms):\n%s\n\nSkrip (Scripts):\n%s",
		titles, heads, forms, scripts))
}

// limitText joins the string elements of a list field and truncates the
// joined text to max characters, appending "..." when it was cut. Missing or
// non-list values render as empty text.
func limitText(v any, max int) string {
	joined := strings.Join(stringList(v), "\n")
	if len(joined) > max {
		return joined[:max] + "..."
	}
	return joined
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func featureBlock(record map[string]any) string {
	features, ok := record["features"].(map[string]any)
	if !ok || len(features) == 0 {
		return ""
	}

	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Karakteristik teknis:\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", humanizeFeature(k), features[k]))
	}
	return sb.String()
}

func humanizeFeature(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatPercent scales a fractional value to a percentage rounded half-up to
// two decimals, rendered in the shortest form with at least one decimal
// (90.0, 87.65).
func formatPercent(v float64) string {
	rounded := math.Round(v*10000) / 100
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func stringField(record map[string]any, key string) string {
	if s, ok := record[key].(string); ok && s != "" {
		return s
	}
	return notAvailable
}

func floatField(record map[string]any, key string) float64 {
	if f, ok := record[key].(float64); ok {
		return f
	}
	return 0
}

func boolField(record map[string]any, key string) bool {
	b, _ := record[key].(bool)
	return b
}

func yaTidak(b bool) string {
	if b {
		return "YA"
	}
	return "TIDAK"
}
