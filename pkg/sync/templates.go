package sync

import (
	"bytes"
	"fmt"
	"text/template"
)

var prBodyTmpl = template.Must(template.New("sync_pr").Parse(`## Upstream release {{ .TagName }}

Upstream repository [{{ .UpstreamRepo }}](https://github.com/{{ .UpstreamRepo }}) published release **{{ .TagName }}**.

This pull request was opened automatically to synchronize that release.

| Detail | Value |
|--------|-------|
| Upstream tag | [{{ .TagName }}](https://github.com/{{ .UpstreamRepo }}/releases/tag/{{ .TagName }}) |
| Sync branch | ` + "`{{ .Branch }}`" + ` |
| Tracking label | ` + "`{{ .Label }}`" + ` |

Merging this pull request will create the corresponding tag on this repository.

---

<sub>Opened by [upstream-sync-bot](https://github.com/upstream-sync-bot)</sub>
`))

type prTemplateData struct {
	UpstreamRepo string
	TagName      string
	Branch       string
	Label        string
}

// PullRequestTitle names the sync pull request for an upstream tag.
func PullRequestTitle(tagName string) string {
	return fmt.Sprintf("Sync upstream release %s", tagName)
}

// RenderPullRequestBody renders the body of a sync pull request.
// upstreamRepo is the "owner/name" form.
func RenderPullRequestBody(upstreamRepo, tagName string) string {
	data := prTemplateData{
		UpstreamRepo: upstreamRepo,
		TagName:      tagName,
		Branch:       Label(tagName),
		Label:        Label(tagName),
	}

	var buf bytes.Buffer
	if err := prBodyTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error rendering pull request template: %v", err)
	}
	return buf.String()
}
