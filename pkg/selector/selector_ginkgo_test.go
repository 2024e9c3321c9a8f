package selector

import (
	"github.com/appimage-updater/appimage-updater/pkg/platform"
	"github.com/appimage-updater/appimage-updater/pkg/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Select", func() {
	linuxAmd64 := platform.Platform{OS: "linux", Arch: "x86_64", Distro: platform.DistroArchLike}

	It("prefers the AppImage asset matching host arch", func() {
		release := types.Release{Assets: []types.Asset{
			{Name: "FreeCAD-0.22.0-Linux-x86_64.AppImage"},
			{Name: "FreeCAD-0.22.0-Linux-arm64.AppImage"},
			{Name: "FreeCAD-0.22.0-Windows-x86_64.zip"},
		}}

		asset, err := Select(release, `(?i)FreeCAD.*\.(AppImage|zip)$`, linuxAmd64, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(asset.Name).To(Equal("FreeCAD-0.22.0-Linux-x86_64.AppImage"))
	})

	It("rejects assets with zero arch or platform score", func() {
		release := types.Release{Assets: []types.Asset{
			{Name: "FreeCAD-0.22.0-Windows-arm64.AppImage"},
		}}

		_, err := Select(release, `(?i)FreeCAD.*\.AppImage$`, linuxAmd64, nil)
		Expect(err).To(HaveOccurred())
	})

	It("fails with NoMatchingAsset when nothing matches the pattern", func() {
		release := types.Release{Assets: []types.Asset{{Name: "readme.txt"}}}
		_, err := Select(release, `(?i)FreeCAD.*\.AppImage$`, linuxAmd64, nil)
		Expect(err).To(HaveOccurred())
	})

	It("treats a generic (no-arch-token) asset as score 50", func() {
		release := types.Release{Assets: []types.Asset{{Name: "tool.AppImage"}}}
		asset, err := Select(release, `(?i)tool\.AppImage$`, linuxAmd64, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(asset.Name).To(Equal("tool.AppImage"))
	})

	It("prefers AppImage over a tarball over a zip regardless of host distro", func() {
		release := types.Release{Assets: []types.Asset{
			{Name: "tool-x86_64.tar.gz"},
			{Name: "tool-x86_64.zip"},
			{Name: "tool-x86_64.AppImage"},
		}}
		asset, err := Select(release, `(?i)tool-x86_64\.(AppImage|tar\.gz|zip)$`, linuxAmd64, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(asset.Name).To(Equal("tool-x86_64.AppImage"))
	})

	It("prefers a tarball over a zip when no AppImage or native package is offered", func() {
		release := types.Release{Assets: []types.Asset{
			{Name: "tool-x86_64.zip"},
			{Name: "tool-x86_64.tar.gz"},
		}}
		asset, err := Select(release, `(?i)tool-x86_64\.(tar\.gz|zip)$`, linuxAmd64, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(asset.Name).To(Equal("tool-x86_64.tar.gz"))
	})

	It("prefers the native package format over a tarball on a debian-like host", func() {
		debianHost := platform.Platform{OS: "linux", Arch: "x86_64", Distro: platform.DistroDebianLike}
		release := types.Release{Assets: []types.Asset{
			{Name: "tool-amd64.tar.gz"},
			{Name: "tool-amd64.deb"},
		}}
		asset, err := Select(release, `(?i)tool-amd64\.(tar\.gz|deb)$`, debianHost, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(asset.Name).To(Equal("tool-amd64.deb"))
	})
})
