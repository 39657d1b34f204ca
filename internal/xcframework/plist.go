package xcframework

import (
	"os"
	"text/template"
)

// InfoPlist holds the values substituted into a framework's Info.plist.
type InfoPlist struct {
	BundleName   string
	PlatformName string
	SDKVersion   string
	MinOSVersion string
}

var infoPlistTemplate = template.Must(template.New("Info.plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>{{.BundleName}}</string>
	<key>CFBundleIdentifier</key>
	<string>xcframework.cargo.{{.BundleName}}</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
	<key>CFBundleName</key>
	<string>{{.BundleName}}</string>
	<key>CFBundlePackageType</key>
	<string>FMWK</string>
	<key>CFBundleShortVersionString</key>
	<string>1.0</string>
	<key>CFBundleSupportedPlatforms</key>
	<array>
		<string>{{.PlatformName}}</string>
	</array>
	<key>CFBundleVersion</key>
	<string>1</string>
	<key>DTPlatformName</key>
	<string>{{.PlatformName}}</string>
	<key>DTSDKName</key>
	<string>{{.PlatformName}}{{.SDKVersion}}</string>
	<key>MinimumOSVersion</key>
	<string>{{.MinOSVersion}}</string>
</dict>
</plist>
`))

// Write renders the plist as XML. plutil converts it to binary afterwards.
func (p InfoPlist) Write(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return infoPlistTemplate.Execute(f, p)
}
