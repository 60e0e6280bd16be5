package bridge

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kiosk404/ferry/pkg/logger"
	"gopkg.in/yaml.v3"
)

var (
	imagePattern    = regexp.MustCompile(`(?i)!\[[^\]]*\]\(([^)]+\.(?:png|jpg|jpeg|gif|webp))\)`)
	anyImagePattern = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	assetPattern    = regexp.MustCompile(`assets/([^/]+/[^)\s]+)`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
	kbLinkPattern   = regexp.MustCompile(`\[([^\]]+)\]\(kb://(.+?\.md)\)`)
)

// ExtractImages removes markdown images from content and returns the image
// URLs. Relative asset paths are served under baseURL/kb/assets/.
func ExtractImages(content, baseURL string) (string, []string) {
	var urls []string
	for _, m := range imagePattern.FindAllStringSubmatch(content, -1) {
		ref := strings.TrimSpace(m[1])
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			urls = append(urls, ref)
			continue
		}
		if a := assetPattern.FindStringSubmatch(ref); a != nil {
			urls = append(urls, strings.TrimRight(baseURL, "/")+"/kb/assets/"+a[1])
		}
	}

	cleaned := anyImagePattern.ReplaceAllString(content, "")
	cleaned = blankRuns.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned), urls
}

// Chunk splits urls into groups of at most n.
func Chunk(urls []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	var groups [][]string
	for start := 0; start < len(urls); start += n {
		end := min(start+n, len(urls))
		groups = append(groups, urls[start:end])
	}
	return groups
}

// KBResolver rewrites kb:// markdown links into the public URLs recorded in
// the front matter of knowledge-base documents.
type KBResolver struct {
	Root string
}

type frontMatter struct {
	URL string `yaml:"url"`
}

// Resolve replaces [title](kb://path.md) with [title](url), or with the bare
// title when the document has no url.
func (r KBResolver) Resolve(content string) string {
	if r.Root == "" || !strings.Contains(content, "kb://") {
		return content
	}
	return kbLinkPattern.ReplaceAllStringFunc(content, func(link string) string {
		m := kbLinkPattern.FindStringSubmatch(link)
		title, ref := m[1], m[2]
		if url := r.lookup(ref); url != "" {
			return "[" + title + "](" + url + ")"
		}
		logger.Warn("[KB] no url for kb://%s", ref)
		return title
	})
}

func (r KBResolver) lookup(ref string) string {
	clean := path.Clean("/" + ref)
	data, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(clean)))
	if err != nil {
		return ""
	}
	if !bytes.HasPrefix(data, []byte("---")) {
		return ""
	}
	end := bytes.Index(data[3:], []byte("---"))
	if end < 0 {
		return ""
	}
	var fm frontMatter
	if err := yaml.Unmarshal(data[3:3+end], &fm); err != nil {
		logger.Warn("[KB] bad front matter in %s: %v", ref, err)
		return ""
	}
	return strings.TrimSpace(fm.URL)
}
