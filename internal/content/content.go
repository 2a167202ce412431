// Package content holds the copy of the marketing pages as typed data.
// Templates only render it.
package content

type Link struct {
	Label string
	Href  string
}

type Hero struct {
	Lead       string
	Highlight  string
	Tail       string
	Subtitle   string
	Primary    Link
	Secondary  Link
	SocialNote string
}

type Feature struct {
	Icon        string
	Title       string
	Description string
}

type SpecGroup struct {
	Icon  string
	Title string
	Items []string
}

type Plan struct {
	Name        string
	Price       string
	Period      string
	Description string
	Features    []string
	CTA         Link
	Popular     bool
}

type FooterColumn struct {
	Title string
	Links []Link
}

type Footer struct {
	Brand     string
	Blurb     string
	Badges    []string
	Columns   []FooterColumn
	Copyright string
	Legal     []Link
}

type Section struct {
	Heading string
	Intro   string
}

// Landing is everything rendered on "/".
type Landing struct {
	Hero          Hero
	FeaturesIntro Section
	Features      []Feature
	SpecsIntro    Section
	Specs         []SpecGroup
	Footer        Footer
}

// PricingPage is everything rendered on "/pricing".
type PricingPage struct {
	Intro    Section
	Plans    []Plan
	Footnote string
	Footer   Footer
}

func NewLanding() Landing {
	return Landing{
		Hero:          hero(),
		FeaturesIntro: Section{Heading: "Infrastructure Built for Performance", Intro: "Enterprise-grade server infrastructure designed for reliability, security, and optimal performance."},
		Features:      features(),
		SpecsIntro:    Section{Heading: "Technical Specifications", Intro: "Enterprise hardware specifications designed for maximum performance and reliability."},
		Specs:         specs(),
		Footer:        footer(),
	}
}

func NewPricingPage() PricingPage {
	return PricingPage{
		Intro:    Section{Heading: "Simple, transparent pricing", Intro: "Start free and scale as you grow. No hidden fees, no surprises."},
		Plans:    plans(),
		Footnote: "All plans include 99.9% uptime SLA and 24/7 monitoring",
		Footer:   footer(),
	}
}

func hero() Hero {
	return Hero{
		Lead:       "Deploy with",
		Highlight:  "Lightning",
		Tail:       "Speed",
		Subtitle:   "The fastest way to deploy your applications to the cloud. Zero configuration, instant scaling, global edge network.",
		Primary:    Link{Label: "Start Deploying Free", Href: "/login"},
		Secondary:  Link{Label: "View Demo", Href: "#features"},
		SocialNote: "Trusted by 50,000+ developers worldwide",
	}
}

func features() []Feature {
	return []Feature{
		{Icon: "server", Title: "Dedicated Hardware", Description: "High-performance dedicated servers with enterprise-grade components and redundant systems."},
		{Icon: "network", Title: "Global Network", Description: "Multi-location infrastructure with low-latency connections and redundant network paths."},
		{Icon: "shield", Title: "Advanced Security", Description: "Multi-layered security with DDoS protection, firewalls, and continuous monitoring."},
		{Icon: "database", Title: "Data Redundancy", Description: "Multiple backup systems and real-time replication across geographically distributed locations."},
		{Icon: "gauge", Title: "Performance Monitoring", Description: "Real-time performance metrics with automated alerting and proactive maintenance."},
		{Icon: "cpu", Title: "Scalable Architecture", Description: "Containerized deployment with automatic scaling and load balancing capabilities."},
	}
}

func specs() []SpecGroup {
	return []SpecGroup{
		{Icon: "cpu", Title: "Processing Power", Items: []string{
			"Intel Xeon E5-2690 v4 processors",
			"28 cores / 56 threads per server",
			"2.6GHz base, 3.5GHz boost",
			"35MB smart cache",
		}},
		{Icon: "hard-drive", Title: "Storage & Memory", Items: []string{
			"256GB DDR4 ECC registered RAM",
			"NVMe SSD primary storage",
			"10TB+ total storage capacity",
			"RAID 10 configuration",
		}},
		{Icon: "wifi", Title: "Network Infrastructure", Items: []string{
			"10 Gbps dedicated bandwidth",
			"99.9% network uptime SLA",
			"DDoS protection up to 1 Tbps",
			"BGP routing with redundancy",
		}},
		{Icon: "zap", Title: "Power & Cooling", Items: []string{
			"Redundant UPS systems",
			"N+1 power configuration",
			"Precision cooling systems",
			"Environmental monitoring",
		}},
	}
}

func plans() []Plan {
	return []Plan{
		{
			Name:        "Hobby",
			Price:       "Free",
			Period:      "forever",
			Description: "Perfect for personal projects and learning",
			Features:    []string{"100GB bandwidth", "10 deployments per day", "Community support", "Basic analytics", "SSL certificates"},
			CTA:         Link{Label: "Get Started", Href: "/login"},
		},
		{
			Name:        "Pro",
			Price:       "$20",
			Period:      "per month",
			Description: "For professional developers and growing teams",
			Features:    []string{"1TB bandwidth", "Unlimited deployments", "Priority support", "Advanced analytics", "Custom domains", "Team collaboration", "Preview deployments"},
			CTA:         Link{Label: "Start Pro Trial", Href: "/login"},
			Popular:     true,
		},
		{
			Name:        "Enterprise",
			Price:       "Custom",
			Period:      "contact us",
			Description: "For large teams with advanced requirements",
			Features:    []string{"Unlimited bandwidth", "Dedicated support", "SSO integration", "Advanced security", "Custom SLA", "On-premise option", "Custom integrations"},
			CTA:         Link{Label: "Contact Sales", Href: "mailto:sales@deploys.cloud"},
		},
	}
}

func footer() Footer {
	return Footer{
		Brand:  "deploys.cloud",
		Blurb:  "Enterprise-grade server infrastructure providing reliable, secure, and high-performance hosting solutions for modern applications.",
		Badges: []string{"24/7 Monitoring", "Enterprise Security"},
		Columns: []FooterColumn{
			{Title: "Infrastructure", Links: []Link{
				{Label: "Server Specifications", Href: "/#specs"},
				{Label: "Network Status", Href: "#"},
				{Label: "Security Overview", Href: "#"},
				{Label: "Performance Metrics", Href: "#"},
			}},
			{Title: "Information", Links: []Link{
				{Label: "About", Href: "#"},
				{Label: "Technical Blog", Href: "#"},
				{Label: "System Status", Href: "#"},
				{Label: "Contact", Href: "mailto:hello@deploys.cloud"},
			}},
		},
		Copyright: "© 2024 deploys.cloud. Professional server infrastructure.",
		Legal: []Link{
			{Label: "Privacy Policy", Href: "#"},
			{Label: "Terms of Service", Href: "#"},
		},
	}
}
