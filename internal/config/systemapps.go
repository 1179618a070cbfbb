package config

// DefaultSystemPackages returns the curated list of package-name prefixes
// classified as system applications. Events from these packages are skipped
// whenever the ignore-system-apps preference is on. The list covers the
// usual platform namespaces plus vendor system suites.
func DefaultSystemPackages() []string {
	return []string{
		// Core platform
		"android",
		"com.android.",

		// Google system suite
		"com.google.android.gms",
		"com.google.android.gsf",
		"com.google.android.packageinstaller",
		"com.google.android.permissioncontroller",
		"com.google.android.setupwizard",
		"com.google.android.providers.",
		"com.google.android.ext.",
		"com.google.android.overlay.",
		"com.google.mainline.",

		// Vendor system suites
		"com.samsung.android.",
		"com.sec.android.",
		"com.miui.",
		"com.xiaomi.",
		"com.huawei.android.",
		"com.oneplus.",
		"com.oppo.",
		"com.vivo.",
		"com.coloros.",
		"com.oplus.",

		// SoC / firmware
		"com.qualcomm.",
		"com.mediatek.",
	}
}
