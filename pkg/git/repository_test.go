package git_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/git"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/git/auth"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

const overridePath = "apps/api/.argocd-source-api.yaml"

const initialOverrides = `helm:
  parameters:
  - forcestring: false
    name: image.tag
    value: v1
`

// upstream is a non-bare repository whose .git directory acts as the remote.
type upstream struct {
	dir  string
	repo *gogit.Repository
}

func newUpstream() *upstream {
	dir := ginkgo.GinkgoT().TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	u := &upstream{dir: dir, repo: repo}
	u.commit(map[string]string{overridePath: initialOverrides, "README.md": "deploy\n"}, "Initial commit")

	return u
}

func (u *upstream) url() string {
	return filepath.Join(u.dir, ".git")
}

func (u *upstream) commit(files map[string]string, message string) plumbing.Hash {
	worktree, err := u.repo.Worktree()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	for name, content := range files {
		path := filepath.Join(u.dir, name)
		gomega.Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(gomega.Succeed())
		gomega.Expect(os.WriteFile(path, []byte(content), 0o644)).To(gomega.Succeed())
		_, err := worktree.Add(name)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	}

	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Developer", Email: "dev@example.com", When: time.Now()},
	})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	return hash
}

// tip reads the branch tip through a fresh handle, which also sees packfiles written by pushes.
func (u *upstream) tip() *object.Commit {
	repo, err := gogit.PlainOpen(u.dir)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	commit, err := repo.CommitObject(ref.Hash())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	return commit
}

var _ = ginkgo.Describe("the synchronizer", func() {
	var (
		remote  *upstream
		workdir string
		sync    *git.Synchronizer
		ctx     context.Context
	)

	newSynchronizer := func(url string) *git.Synchronizer {
		return git.New(types.Config{
			RepositoryURL: url,
			Branch:        "main",
			Workdir:       workdir,
			CommitAuthor:  types.CommitAuthor{Name: "Automatic image updater", Email: "nobody@bananium.fr"},
			CommitMessage: "Updated images",
		}, auth.NewProvider(""))
	}

	readWorkdir := func(name string) string {
		content, err := os.ReadFile(filepath.Join(workdir, name))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return string(content)
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		remote = newUpstream()
		workdir = ginkgo.GinkgoT().TempDir()
		sync = newSynchronizer(remote.url())
	})

	ginkgo.Describe("Sync", func() {
		ginkgo.It("should clone into an empty working directory", func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())
			gomega.Expect(readWorkdir(overridePath)).To(gomega.Equal(initialOverrides))
			gomega.Expect(sync.Root()).To(gomega.Equal(workdir))
		})

		ginkgo.It("should discard local changes", func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())

			gomega.Expect(os.WriteFile(filepath.Join(workdir, overridePath), []byte("drift\n"), 0o644)).
				To(gomega.Succeed())
			gomega.Expect(os.WriteFile(filepath.Join(workdir, "untracked.yaml"), []byte("x: 1\n"), 0o644)).
				To(gomega.Succeed())

			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())
			gomega.Expect(readWorkdir(overridePath)).To(gomega.Equal(initialOverrides))
			gomega.Expect(filepath.Join(workdir, "untracked.yaml")).NotTo(gomega.BeAnExistingFile())
		})

		ginkgo.It("should pick up new remote commits", func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())

			remote.commit(map[string]string{"apps/web/values.yaml": "replicas: 2\n"}, "Add web")

			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())
			gomega.Expect(readWorkdir("apps/web/values.yaml")).To(gomega.Equal("replicas: 2\n"))
		})

		ginkgo.It("should drop unpushed local commits", func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())

			local, err := gogit.PlainOpen(workdir)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			worktree, err := local.Worktree()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(os.WriteFile(filepath.Join(workdir, "README.md"), []byte("local\n"), 0o644)).
				To(gomega.Succeed())
			_, err = worktree.Add("README.md")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = worktree.Commit("local", &gogit.CommitOptions{
				Author: &object.Signature{Name: "x", Email: "x@example.com", When: time.Now()},
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())
			gomega.Expect(readWorkdir("README.md")).To(gomega.Equal("deploy\n"))

			head, err := local.Head()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(head.Hash()).To(gomega.Equal(remote.tip().Hash))
		})

		ginkgo.It("should follow a changed repository URL", func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())

			other := newUpstream()
			other.commit(map[string]string{"OTHER.md": "other\n"}, "Other")

			gomega.Expect(newSynchronizer(other.url()).Sync(ctx)).To(gomega.Succeed())
			gomega.Expect(readWorkdir("OTHER.md")).To(gomega.Equal("other\n"))
		})

		ginkgo.It("should report a sync error for an unreachable remote", func() {
			missing := newSynchronizer(filepath.Join(ginkgo.GinkgoT().TempDir(), "missing.git"))

			err := missing.Sync(ctx)
			gomega.Expect(err).To(gomega.MatchError(types.ErrSync))

			var gitErr types.GitError
			gomega.Expect(errors.As(err, &gitErr)).To(gomega.BeTrue())
			gomega.Expect(gitErr.Op).To(gomega.Equal("fetch"))
		})
	})

	ginkgo.Describe("CommitAndPush", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(sync.Sync(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("should push one commit with the configured identity", func() {
			updated := "helm:\n  parameters:\n  - forcestring: false\n    name: image.tag\n    value: v2\n"
			gomega.Expect(os.WriteFile(filepath.Join(workdir, overridePath), []byte(updated), 0o644)).
				To(gomega.Succeed())

			hash, err := sync.CommitAndPush(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(hash).NotTo(gomega.BeEmpty())

			tip := remote.tip()
			gomega.Expect(tip.Hash.String()).To(gomega.Equal(hash))
			gomega.Expect(tip.Message).To(gomega.Equal("Updated images"))
			gomega.Expect(tip.Author.Name).To(gomega.Equal("Automatic image updater"))
			gomega.Expect(tip.Author.Email).To(gomega.Equal("nobody@bananium.fr"))

			file, err := tip.File(overridePath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(file.Contents()).To(gomega.Equal(updated))
		})

		ginkgo.It("should not push when the working copy is clean", func() {
			before := remote.tip().Hash

			hash, err := sync.CommitAndPush(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(hash).To(gomega.BeEmpty())
			gomega.Expect(remote.tip().Hash).To(gomega.Equal(before))
		})

		ginkgo.It("should fail without rebasing when the remote advanced", func() {
			advanced := remote.commit(map[string]string{"README.md": "remote change\n"}, "Concurrent change")

			gomega.Expect(os.WriteFile(filepath.Join(workdir, overridePath), []byte("helm:\n  parameters: []\n"), 0o644)).
				To(gomega.Succeed())

			_, err := sync.CommitAndPush(ctx)
			gomega.Expect(err).To(gomega.MatchError(types.ErrPush))
			gomega.Expect(remote.tip().Hash).To(gomega.Equal(advanced))
		})
	})
})
