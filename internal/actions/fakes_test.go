package actions_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

var errUnknownImage = errors.New("unknown image")

// fakeRepository is a working copy without a remote.
type fakeRepository struct {
	root      string
	files     map[string]string
	syncErr   error
	pushErr   error
	commit    string
	syncs     int
	pushes    int
	pushFiles map[string]string
}

func newFakeRepository(root string, files map[string]string) *fakeRepository {
	return &fakeRepository{root: root, files: files, commit: "0123456789abcdef"}
}

// Sync rewrites the fixture files, discarding local changes to them.
func (r *fakeRepository) Sync(context.Context) error {
	r.syncs++

	if r.syncErr != nil {
		return r.syncErr
	}

	for name, content := range r.files {
		path := filepath.Join(r.root, name)
		gomega.Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(gomega.Succeed())
		gomega.Expect(os.WriteFile(path, []byte(content), 0o644)).To(gomega.Succeed())
	}

	return nil
}

func (r *fakeRepository) CommitAndPush(context.Context) (string, error) {
	r.pushes++

	if r.pushErr != nil {
		return "", r.pushErr
	}

	r.pushFiles = map[string]string{}

	for name := range r.files {
		content, err := os.ReadFile(filepath.Join(r.root, name))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		r.pushFiles[name] = string(content)
	}

	return r.commit, nil
}

func (r *fakeRepository) Root() string {
	return r.root
}

// fakeResolver resolves candidates by registry reference.
type fakeResolver struct {
	mutex sync.Mutex
	tags  map[string]string
	errs  map[string]error
	calls []string
}

func (r *fakeResolver) LatestTag(_ context.Context, candidate types.Candidate) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.calls = append(r.calls, candidate.RegistryURL)

	if err, ok := r.errs[candidate.RegistryURL]; ok {
		return "", err
	}

	tag, ok := r.tags[candidate.RegistryURL]
	if !ok {
		return "", errUnknownImage
	}

	return tag, nil
}

func (r *fakeResolver) Calls() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]string(nil), r.calls...)
}

// fakeLister serves a fixed tag list for every reference.
type fakeLister struct {
	tags []string
}

func (l fakeLister) ListTags(context.Context, string) ([]string, error) {
	return l.tags, nil
}

// fakeNotifier records sent reports.
type fakeNotifier struct {
	reports []types.Report
	errs    []error
}

func (n *fakeNotifier) Send(report types.Report, err error) {
	n.reports = append(n.reports, report)
	n.errs = append(n.errs, err)
}

func (n *fakeNotifier) GetNames() []string { return []string{"fake"} }

func (n *fakeNotifier) GetURLs() []string { return []string{"fake://"} }

func (n *fakeNotifier) Close() {}
