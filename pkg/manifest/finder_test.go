package manifest_test

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/manifest"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

var _ = ginkgo.Describe("FindCandidates", func() {
	var root string

	write := func(name, content string) {
		path := filepath.Join(root, name)
		gomega.Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(gomega.Succeed())
		gomega.Expect(os.WriteFile(path, []byte(content), 0o644)).To(gomega.Succeed())
	}

	ginkgo.BeforeEach(func() {
		root = ginkgo.GinkgoT().TempDir()
	})

	ginkgo.It("should visit .yaml and .yml files recursively", func() {
		write("argocd/api.yaml", apiApplication)
		write("argocd/nested/shop.yml", multiImageApplication)
		write("argocd/readme.md", apiApplication)

		result, err := manifest.FindCandidates(root)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Candidates).To(gomega.HaveLen(3))

		files := map[string]bool{}
		for _, candidate := range result.Candidates {
			files[candidate.File] = true
		}

		gomega.Expect(files).To(gomega.HaveKey("argocd/api.yaml"))
		gomega.Expect(files).To(gomega.HaveKey("argocd/nested/shop.yml"))
	})

	ginkgo.It("should skip the .git directory", func() {
		write(".git/hooks/app.yaml", apiApplication)

		result, err := manifest.FindCandidates(root)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Candidates).To(gomega.BeEmpty())
	})

	ginkgo.It("should skip unparsable files and keep going", func() {
		write("a-broken.yaml", "key: [unclosed\n")
		write("b-api.yaml", apiApplication)

		result, err := manifest.FindCandidates(root)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Candidates).To(gomega.HaveLen(1))
		gomega.Expect(result.Diagnostics).To(gomega.HaveLen(1))
		gomega.Expect(errors.Is(result.Diagnostics[0].Err, types.ErrParse)).To(gomega.BeTrue())
	})

	ginkgo.It("should fail with an extraction error when the root does not exist", func() {
		_, err := manifest.FindCandidates(filepath.Join(root, "missing"))
		gomega.Expect(errors.Is(err, types.ErrExtraction)).To(gomega.BeTrue())
	})
})
