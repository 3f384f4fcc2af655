package manifest_test

import (
	"errors"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/manifest"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

const apiApplication = `
apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: api
  annotations:
    argocd-image-updater.argoproj.io/image-list: "api=registry.example/org/api"
    argocd-image-updater.argoproj.io/api.allow-tags: "regexp:^v\\d+$"
    argocd-image-updater.argoproj.io/api.helm.image-tag: image.tag
spec:
  source:
    path: apps/api
`

const multiImageApplication = `
apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: shop
  annotations:
    argocd-image-updater.argoproj.io/image-list: "web=ghcr.io/org/web, worker=ghcr.io/org/worker,broken, cron=ghcr.io/org/cron"
    argocd-image-updater.argoproj.io/web.allow-tags: "^[0-9]+$"
    argocd-image-updater.argoproj.io/web.helm.image-tag: web.image.tag
    argocd-image-updater.argoproj.io/worker.helm.image-tag: worker.image.tag
    argocd-image-updater.argoproj.io/cron.allow-tags: "^main-[0-9]+$"
    argocd-image-updater.argoproj.io/cron.helm.image-tag: cron.image.tag
spec:
  source:
    path: apps/shop
`

var _ = ginkgo.Describe("the manifest parser", func() {
	ginkgo.Describe("SplitDocuments", func() {
		ginkgo.It("should ignore leading and trailing separators", func() {
			documents, err := manifest.SplitDocuments([]byte("---\na: 1\n---\nb: 2\n---\n"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(documents).To(gomega.HaveLen(2))
		})

		ginkgo.It("should drop empty documents", func() {
			documents, err := manifest.SplitDocuments([]byte("a: 1\n---\n\n---\nb: 2\n"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(documents).To(gomega.HaveLen(2))
		})
	})

	ginkgo.Describe("ParseDocument", func() {
		ginkgo.It("should fail with a parse error when a document is not a mapping", func() {
			_, err := manifest.ParseDocument([]byte("- just\n- a list\n"))
			gomega.Expect(errors.Is(err, types.ErrParse)).To(gomega.BeTrue())
		})

		ginkgo.It("should parse a mapping document", func() {
			document, err := manifest.ParseDocument([]byte("kind: ConfigMap\n"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(document).To(gomega.HaveKeyWithValue("kind", "ConfigMap"))
		})
	})

	ginkgo.Describe("IsApplication", func() {
		ginkgo.It("should require both apiVersion and kind", func() {
			gomega.Expect(manifest.IsApplication(manifest.Document{
				"apiVersion": "argoproj.io/v1alpha1",
				"kind":       "Application",
			})).To(gomega.BeTrue())
			gomega.Expect(manifest.IsApplication(manifest.Document{
				"apiVersion": "argoproj.io/v1alpha1",
				"kind":       "AppProject",
			})).To(gomega.BeFalse())
			gomega.Expect(manifest.IsApplication(manifest.Document{
				"apiVersion": "apps/v1",
				"kind":       "Application",
			})).To(gomega.BeFalse())
			gomega.Expect(manifest.IsApplication(manifest.Document{"kind": 3})).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("FromFile", func() {
		ginkgo.It("should extract a candidate from a complete declaration", func() {
			candidates, diagnostics := manifest.FromFile([]byte(apiApplication), "apps/api.yaml")
			gomega.Expect(diagnostics).To(gomega.BeEmpty())
			gomega.Expect(candidates).To(gomega.ConsistOf(types.Candidate{
				AppName:       "api",
				ImageName:     "api",
				RegistryURL:   "registry.example/org/api",
				AllowTags:     `regexp:^v\d+$`,
				ParameterName: "image.tag",
				SourcePath:    "apps/api",
				File:          "apps/api.yaml",
			}))
		})

		ginkgo.It("should skip incomplete images without affecting their siblings", func() {
			candidates, diagnostics := manifest.FromFile([]byte(multiImageApplication), "shop.yaml")

			names := make([]string, 0, len(candidates))
			for _, candidate := range candidates {
				names = append(names, candidate.ImageName)
			}

			gomega.Expect(names).To(gomega.Equal([]string{"web", "cron"}))
			gomega.Expect(diagnostics).To(gomega.HaveLen(2))

			for _, diagnostic := range diagnostics {
				gomega.Expect(diagnostic.Severity).To(gomega.Equal(manifest.SeverityWarning))
				gomega.Expect(errors.Is(diagnostic.Err, types.ErrExtraction)).To(gomega.BeTrue())
			}

			gomega.Expect(diagnostics[0].Image).To(gomega.Equal("worker"))
			gomega.Expect(diagnostics[0].Message()).To(gomega.ContainSubstring("without `allow-tags`"))
			gomega.Expect(diagnostics[1].Image).To(gomega.Equal("broken"))
		})

		ginkgo.It("should ignore documents that are not applications", func() {
			content := "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: cm\n"
			candidates, diagnostics := manifest.FromFile([]byte(content), "cm.yaml")
			gomega.Expect(candidates).To(gomega.BeEmpty())
			gomega.Expect(diagnostics).To(gomega.BeEmpty())
		})

		ginkgo.It("should report a declaration without annotations and produce nothing", func() {
			content := "apiVersion: argoproj.io/v1alpha1\nkind: Application\nmetadata:\n  name: bare\n"
			candidates, diagnostics := manifest.FromFile([]byte(content), "bare.yaml")
			gomega.Expect(candidates).To(gomega.BeEmpty())
			gomega.Expect(diagnostics).To(gomega.HaveLen(1))
			gomega.Expect(diagnostics[0].Severity).To(gomega.Equal(manifest.SeverityDebug))
		})

		ginkgo.It("should report a declaration without a source path", func() {
			content := `
apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: nopath
  annotations:
    argocd-image-updater.argoproj.io/image-list: "a=ghcr.io/org/a"
    argocd-image-updater.argoproj.io/a.allow-tags: ".*"
    argocd-image-updater.argoproj.io/a.helm.image-tag: a.tag
spec:
  source:
    repoURL: https://example.com/charts
`
			candidates, diagnostics := manifest.FromFile([]byte(content), "nopath.yaml")
			gomega.Expect(candidates).To(gomega.BeEmpty())
			gomega.Expect(diagnostics).To(gomega.HaveLen(1))
			gomega.Expect(diagnostics[0].App).To(gomega.Equal("nopath"))
		})

		ginkgo.It("should report an unparsable document as a parse diagnostic", func() {
			candidates, diagnostics := manifest.FromFile([]byte("key: [unclosed\n"), "broken.yaml")
			gomega.Expect(candidates).To(gomega.BeEmpty())
			gomega.Expect(diagnostics).To(gomega.HaveLen(1))
			gomega.Expect(diagnostics[0].Document).To(gomega.Equal(0))
			gomega.Expect(errors.Is(diagnostics[0].Err, types.ErrParse)).To(gomega.BeTrue())
		})

		ginkgo.It("should keep applications next to a document that is not a mapping", func() {
			content := "- just\n- a list\n---\n" + apiApplication
			candidates, diagnostics := manifest.FromFile([]byte(content), "mixed.yaml")

			gomega.Expect(candidates).To(gomega.HaveLen(1))
			gomega.Expect(candidates[0].AppName).To(gomega.Equal("api"))
			gomega.Expect(diagnostics).To(gomega.HaveLen(1))
			gomega.Expect(diagnostics[0].Document).To(gomega.Equal(0))
			gomega.Expect(diagnostics[0].File).To(gomega.Equal("mixed.yaml"))
			gomega.Expect(errors.Is(diagnostics[0].Err, types.ErrParse)).To(gomega.BeTrue())
		})

		ginkgo.It("should extract applications from every document of a multi-document file", func() {
			other := `
apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: other
  annotations:
    argocd-image-updater.argoproj.io/image-list: "o=ghcr.io/org/other"
    argocd-image-updater.argoproj.io/o.allow-tags: ".*"
    argocd-image-updater.argoproj.io/o.helm.image-tag: o.tag
spec:
  source:
    path: apps/other
`
			candidates, _ := manifest.FromFile([]byte("---\n"+apiApplication+"---\n"+other+"---\n"), "all.yaml")
			gomega.Expect(candidates).To(gomega.HaveLen(2))
			gomega.Expect(candidates[0].AppName).To(gomega.Equal("api"))
			gomega.Expect(candidates[1].AppName).To(gomega.Equal("other"))
		})
	})
})
