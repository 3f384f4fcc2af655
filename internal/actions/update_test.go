package actions_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/gitops-image-updater/internal/actions"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/overrides"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/resolver"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

func application(name, path string, images ...string) string {
	manifest := fmt.Sprintf(`apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: %s
  annotations:
`, name)

	list := ""

	for i, image := range images {
		if i > 0 {
			list += ","
		}

		list += image + "=registry.example/org/" + image
		manifest += fmt.Sprintf(`    argocd-image-updater.argoproj.io/%s.allow-tags: "regexp:^v\\d+$"
    argocd-image-updater.argoproj.io/%s.helm.image-tag: %s.tag
`, image, image, image)
	}

	manifest += fmt.Sprintf(`    argocd-image-updater.argoproj.io/image-list: %s
spec:
  source:
    path: %s
`, list, path)

	return manifest
}

func overrideFile(parameters map[string]string) string {
	content := "helm:\n  parameters:\n"
	for name, value := range parameters {
		content += fmt.Sprintf("  - forcestring: false\n    name: %s\n    value: %s\n", name, value)
	}

	return content
}

var errBoom = errors.New("boom")

var _ = ginkgo.Describe("Updater", func() {
	var (
		root       string
		repository *fakeRepository
		tags       *fakeResolver
	)

	parameters := func(path string) []types.Parameter {
		document, exists, err := overrides.Load(filepath.Join(root, path))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(exists).To(gomega.BeTrue())

		return document.Helm.Parameters
	}

	ginkgo.BeforeEach(func() {
		root = ginkgo.GinkgoT().TempDir()
		repository = newFakeRepository(root, map[string]string{
			"argocd/api.yaml":                    application("api", "apps/api", "api"),
			"argocd/shop.yaml":                   application("shop", "apps/shop", "cart", "front"),
			"apps/api/.argocd-source-api.yaml":   overrideFile(map[string]string{"api.tag": "v1"}),
			"apps/shop/.argocd-source-shop.yaml": "helm:\n  parameters:\n  - forcestring: false\n    name: cart.tag\n    value: v3\n  - forcestring: true\n    name: front.tag\n    value: v1\n",
		})
		tags = &fakeResolver{tags: map[string]string{
			"registry.example/org/api":   "v2",
			"registry.example/org/cart":  "v3",
			"registry.example/org/front": "v4",
		}}
	})

	ginkgo.It("should pin new tags and push once", func() {
		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(repository.syncs).To(gomega.Equal(1))
		gomega.Expect(repository.pushes).To(gomega.Equal(1))
		gomega.Expect(result.Pushed).To(gomega.BeTrue())
		gomega.Expect(result.Commit).To(gomega.Equal("0123456789abcdef"))
		gomega.Expect(result.Report.Updated()).To(gomega.HaveLen(2))
		gomega.Expect(result.Report.Fresh()).To(gomega.HaveLen(1))
		gomega.Expect(result.Report.All()).To(gomega.HaveLen(3))

		gomega.Expect(parameters("apps/api/.argocd-source-api.yaml")).To(gomega.Equal([]types.Parameter{
			{Name: "api.tag", Value: "v2"},
		}))
		gomega.Expect(parameters("apps/shop/.argocd-source-shop.yaml")).To(gomega.Equal([]types.Parameter{
			{Name: "cart.tag", Value: "v3"},
			{Name: "front.tag", Value: "v4", ForceString: true},
		}))
		gomega.Expect(repository.pushFiles["apps/api/.argocd-source-api.yaml"]).To(gomega.ContainSubstring("value: v2"))
	})

	ginkgo.It("should not commit when every override is already pinned", func() {
		tags.tags["registry.example/org/api"] = "v1"
		tags.tags["registry.example/org/front"] = "v1"

		result, err := actions.New(repository, tags, 2).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(repository.pushes).To(gomega.BeZero())
		gomega.Expect(result.Changed).To(gomega.BeFalse())
		gomega.Expect(result.Pushed).To(gomega.BeFalse())
		gomega.Expect(result.Report.Fresh()).To(gomega.HaveLen(3))
	})

	ginkgo.It("should be idempotent across runs", func() {
		updater := actions.New(repository, tags, 1)

		_, err := updater.Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		// The fake remote never receives the push, so persist the patched files as the new tip.
		for name := range repository.files {
			repository.files[name] = repository.pushFiles[name]
		}

		result, err := updater.Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Changed).To(gomega.BeFalse())
		gomega.Expect(repository.pushes).To(gomega.Equal(1))
	})

	ginkgo.It("should keep going when a candidate fails", func() {
		tags.errs = map[string]error{"registry.example/org/cart": fmt.Errorf("%w: %w", types.ErrRegistry, errBoom)}

		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(result.Report.Failed()).To(gomega.HaveLen(1))
		gomega.Expect(result.Report.Failed()[0].Candidate().ImageName).To(gomega.Equal("cart"))
		gomega.Expect(result.Report.Failed()[0].Error()).To(gomega.ContainSubstring("boom"))
		gomega.Expect(result.Report.Updated()).To(gomega.HaveLen(2))
		gomega.Expect(repository.pushes).To(gomega.Equal(1))
	})

	ginkgo.It("should fail a candidate whose override file is malformed", func() {
		repository.files["apps/api/.argocd-source-api.yaml"] = "helm: [unclosed\n"

		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(result.Report.Failed()).To(gomega.HaveLen(1))
		gomega.Expect(result.Report.Failed()[0].LatestTag()).To(gomega.Equal("v2"))
		gomega.Expect(result.Report.Updated()).To(gomega.HaveLen(1))
	})

	ginkgo.It("should skip candidates without override file or parameter", func() {
		delete(repository.files, "apps/api/.argocd-source-api.yaml")
		repository.files["apps/shop/.argocd-source-shop.yaml"] = overrideFile(map[string]string{"other": "x"})

		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(result.Report.Skipped()).To(gomega.HaveLen(3))
		gomega.Expect(result.Changed).To(gomega.BeFalse())
		gomega.Expect(repository.pushes).To(gomega.BeZero())

		_, statErr := os.Stat(filepath.Join(root, "apps/api/.argocd-source-api.yaml"))
		gomega.Expect(os.IsNotExist(statErr)).To(gomega.BeTrue())
	})

	ginkgo.It("should abort on synchronization failure", func() {
		repository.syncErr = fmt.Errorf("%w: %w", types.ErrSync, errBoom)

		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).To(gomega.MatchError(types.ErrSync))
		gomega.Expect(result).NotTo(gomega.BeNil())
		gomega.Expect(result.Report).To(gomega.BeNil())
		gomega.Expect(tags.Calls()).To(gomega.BeEmpty())
		gomega.Expect(repository.pushes).To(gomega.BeZero())
	})

	ginkgo.It("should report push failures", func() {
		repository.pushErr = fmt.Errorf("%w: %w", types.ErrPush, errBoom)

		result, err := actions.New(repository, tags, 4).Run(context.Background())
		gomega.Expect(err).To(gomega.MatchError(types.ErrPush))
		gomega.Expect(result.Changed).To(gomega.BeTrue())
		gomega.Expect(result.Pushed).To(gomega.BeFalse())
	})

	ginkgo.It("should update every candidate sharing an override file", func() {
		repository.files = map[string]string{
			"argocd/shop.yaml":                   application("shop", "apps/shop", "cart", "front"),
			"apps/shop/.argocd-source-shop.yaml": "helm:\n  parameters:\n  - name: cart.tag\n    value: v1\n  - name: front.tag\n    value: v1\n",
		}

		result, err := actions.New(repository, tags, 8).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Report.Updated()).To(gomega.HaveLen(2))

		gomega.Expect(parameters("apps/shop/.argocd-source-shop.yaml")).To(gomega.Equal([]types.Parameter{
			{Name: "cart.tag", Value: "v3"},
			{Name: "front.tag", Value: "v4"},
		}))
	})

	ginkgo.It("should resolve the newest allowed tag from the registry", func() {
		repository.files = map[string]string{
			"argocd/api.yaml":                  application("api", "apps/api", "api"),
			"apps/api/.argocd-source-api.yaml": overrideFile(map[string]string{"api.tag": "v1"}),
		}
		lister := fakeLister{tags: []string{"v1", "v2", "latest"}}

		result, err := actions.New(repository, resolver.New(lister), 4).Run(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Report.Updated()).To(gomega.HaveLen(1))
		gomega.Expect(result.Report.Updated()[0].LatestTag()).To(gomega.Equal("v2"))
		gomega.Expect(parameters("apps/api/.argocd-source-api.yaml")).To(gomega.Equal([]types.Parameter{
			{Name: "api.tag", Value: "v2"},
		}))
	})
})

var _ = ginkgo.Describe("RunUpdatesWithNotifications", func() {
	ginkgo.It("should send the report and the run error", func() {
		root := ginkgo.GinkgoT().TempDir()
		repository := newFakeRepository(root, map[string]string{})
		repository.syncErr = fmt.Errorf("%w: %w", types.ErrSync, errBoom)
		notifier := &fakeNotifier{}

		result, err := actions.RunUpdatesWithNotifications(
			context.Background(),
			actions.New(repository, &fakeResolver{}, 1),
			notifier,
		)
		gomega.Expect(err).To(gomega.MatchError(types.ErrSync))
		gomega.Expect(notifier.errs).To(gomega.HaveLen(1))
		gomega.Expect(notifier.errs[0]).To(gomega.MatchError(types.ErrSync))
		gomega.Expect(result.Metric(err).Aborted).To(gomega.BeTrue())
	})

	ginkgo.It("should tolerate a nil notifier", func() {
		root := ginkgo.GinkgoT().TempDir()
		repository := newFakeRepository(root, map[string]string{})

		result, err := actions.RunUpdatesWithNotifications(
			context.Background(),
			actions.New(repository, &fakeResolver{}, 0),
			nil,
		)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Report.All()).To(gomega.BeEmpty())
	})
})
