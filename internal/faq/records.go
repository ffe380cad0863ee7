package faq

// defaultRecords is the firm's published FAQ, in display order. Order matters:
// the matcher breaks keyword-count ties in favour of the earlier record.
var defaultRecords = []Record{
	// Company Overview
	{
		ID:       "1",
		Category: "Company Overview",
		Question: "What is ArvoCap Asset Managers Ltd?",
		Answer:   "ArvoCap Asset Managers Ltd is a licensed asset management company based in Nairobi, Kenya. It is regulated by the Capital Markets Authority (CMA), license number 190 issued on October 30, 2023.",
		Keywords: []string{"company", "about", "arvocap", "what", "asset managers", "licensed", "regulated"},
	},
	{
		ID:       "2",
		Category: "Company Overview",
		Question: "What is ArvoCap's mission?",
		Answer:   "To empower investors through innovative financial solutions and portfolio diversification.",
		Keywords: []string{"mission", "purpose", "goal", "empower", "investors"},
	},
	{
		ID:       "3",
		Category: "Company Overview",
		Question: "What is ArvoCap's vision?",
		Answer:   "To leverage technology and market insights to deliver client-centered investment outcomes.",
		Keywords: []string{"vision", "technology", "market insights", "client-centered"},
	},
	{
		ID:       "4",
		Category: "Company Overview",
		Question: "What are ArvoCap's values?",
		Answer:   "Integrity, innovation, and collaboration.",
		Keywords: []string{"values", "integrity", "innovation", "collaboration"},
	},
	{
		ID:       "5",
		Category: "Company Overview",
		Question: "Where is ArvoCap's office located?",
		Answer:   "Reliable Towers, 8th Floor – Wing B, Mogotio Road, Westlands, Nairobi, Kenya.",
		Keywords: []string{"office", "location", "address", "nairobi", "westlands", "reliable towers"},
	},
	{
		ID:       "6",
		Category: "Support & Contact",
		Question: "How can I contact ArvoCap?",
		Answer:   "Phone: +254 701 300 200 | Email: invest@arvocap.com | Website: www.arvocap.com",
		Keywords: []string{"contact", "phone", "email", "website", "reach", "support"},
	},
	{
		ID:       "7",
		Category: "Company Overview",
		Question: "Who are ArvoCap's custodians and trustees?",
		Answer:   "NCBA Bank Kenya PLC.",
		Keywords: []string{"custodian", "trustee", "ncba", "bank"},
	},
	{
		ID:       "8",
		Category: "Company Overview",
		Question: "Who audits ArvoCap's funds?",
		Answer:   "King'ori Kamau & Company (CPAK).",
		Keywords: []string{"audit", "auditor", "kingori", "kamau", "cpak"},
	},
	{
		ID:       "9",
		Category: "Company Overview",
		Question: "Does ArvoCap have an app?",
		Answer:   "Yes. The ArvoCap Investment App allows you to manage investments, track performance, and make financial decisions easily.",
		Keywords: []string{"app", "mobile", "investment app", "track", "performance"},
	},
	{
		ID:       "10",
		Category: "Company Overview",
		Question: "Is ArvoCap regulated?",
		Answer:   "Yes. ArvoCap Asset Managers Ltd is licensed and regulated by the CMA (Kenya).",
		Keywords: []string{"regulated", "licensed", "cma", "capital markets authority"},
	},
	{
		ID:       "11",
		Category: "Company Overview",
		Question: "Does past performance guarantee future returns?",
		Answer:   "No. Past performance is not necessarily a guide to future performance. Investors may not recover the full amount invested.",
		Keywords: []string{"past performance", "future returns", "guarantee", "risk", "disclaimer"},
	},

	// Money Market Fund
	{
		ID:       "12",
		Category: "Money Market Fund",
		Question: "What is the ArvoCap Money Market Fund?",
		Answer:   "It is a low-risk collective investment scheme (unit trust) that invests in short-term government securities, treasury bills, corporate bonds, and deposits. It provides higher returns than a bank savings account while ensuring liquidity and capital preservation.",
		Keywords: []string{"money market fund", "mmf", "low risk", "unit trust", "government securities", "treasury bills"},
	},
	{
		ID:       "13",
		Category: "Money Market Fund",
		Question: "When was the Money Market Fund launched?",
		Answer:   "June 3, 2024.",
		Keywords: []string{"launched", "launch date", "money market", "june 2024"},
	},
	{
		ID:       "14",
		Category: "Money Market Fund",
		Question: "What is the minimum investment in the Money Market Fund?",
		Answer:   "KES 3,000 minimum; top-ups from KES 1,000.",
		Keywords: []string{"minimum investment", "money market", "kes 3000", "top up", "minimum"},
	},
	{
		ID:       "15",
		Category: "Money Market Fund",
		Question: "What is the fund's risk category?",
		Answer:   "Category 1 (lowest risk level on the SRRI scale 1–7).",
		Keywords: []string{"risk category", "category 1", "srri", "lowest risk", "money market"},
	},
	{
		ID:       "16",
		Category: "Money Market Fund",
		Question: "What are the fees for the Money Market Fund?",
		Answer:   "Management fee: 2% per year. No entry or exit fees. No performance fees.",
		Keywords: []string{"fees", "management fee", "2%", "no entry fee", "no exit fee", "money market"},
	},
	{
		ID:       "17",
		Category: "Money Market Fund",
		Question: "What were the monthly returns in 2024?",
		Answer:   "June 16.2%, July 16.9%, August 17.2%, September 16.8%, October 16.7%, November 16.5%, December 15.32%.",
		Keywords: []string{"returns", "2024", "monthly returns", "performance", "16%", "money market"},
	},
	{
		ID:       "18",
		Category: "Money Market Fund",
		Question: "What was the average return of the fund in 2024?",
		Answer:   "The average effective annual yield for the first 7 months was 16.5% (net of fees).",
		Keywords: []string{"average return", "16.5%", "annual yield", "2024", "net of fees"},
	},
	{
		ID:       "19",
		Category: "Money Market Fund",
		Question: "What is the fund's asset allocation?",
		Answer:   "Government Securities 18.39%, Term & Call Deposits 80.16%, Cash 1.45%.",
		Keywords: []string{"asset allocation", "government securities", "deposits", "cash", "allocation"},
	},
	{
		ID:       "20",
		Category: "Money Market Fund",
		Question: "What is the current AUM?",
		Answer:   "The Unit Trust AUM was KES 550.33 million as of December 2024.",
		Keywords: []string{"aum", "assets under management", "550 million", "december 2024"},
	},

	// Thamani Equity Fund
	{
		ID:       "21",
		Category: "Thamani Equity Fund",
		Question: "What is the ArvoCap Thamani Equity Fund?",
		Answer:   "It is a CMA-regulated collective investment scheme (unit trust) that invests mainly in equities for capital growth. It is sometimes referred to as 'ArvoCap Thamani' or simply 'Thamani Fund'.",
		Keywords: []string{"thamani", "equity fund", "equities", "capital growth", "unit trust"},
	},
	{
		ID:       "22",
		Category: "Thamani Equity Fund",
		Question: "What is the investment objective of the Thamani Fund?",
		Answer:   "To achieve above-market risk-adjusted returns through investing in high-value, liquid stocks tracked by the NSE 25 Index, with a mid-to-long-term capital growth view.",
		Keywords: []string{"investment objective", "above-market returns", "nse 25", "capital growth", "thamani"},
	},
	{
		ID:       "23",
		Category: "Thamani Equity Fund",
		Question: "What is the fund's investment strategy?",
		Answer:   "Active equity allocation with tactical positioning, hedging using single stock and equity index futures.",
		Keywords: []string{"investment strategy", "active equity", "tactical positioning", "hedging", "futures"},
	},
	{
		ID:       "24",
		Category: "Thamani Equity Fund",
		Question: "What is the benchmark for the Thamani Fund?",
		Answer:   "NSE 25 Index.",
		Keywords: []string{"benchmark", "nse 25", "index", "thamani"},
	},
	{
		ID:       "25",
		Category: "Thamani Equity Fund",
		Question: "What does the Thamani Fund invest in?",
		Answer:   "Listed NSE equities (60–100%, target 80%), Cash & equivalents (0–100%, target 10%), Derivatives (0–20%, target 10%).",
		Keywords: []string{"investment allocation", "nse equities", "cash", "derivatives", "80%", "thamani"},
	},
	{
		ID:       "26",
		Category: "Thamani Equity Fund",
		Question: "What is the minimum investment in the Thamani Fund?",
		Answer:   "KES 100,000 initial and KES 100,000 top-up.",
		Keywords: []string{"minimum investment", "kes 100000", "initial", "top up", "thamani"},
	},
	{
		ID:       "27",
		Category: "Thamani Equity Fund",
		Question: "Is there a lock-in period for the Thamani Fund?",
		Answer:   "Yes, 6 months for all new investments.",
		Keywords: []string{"lock-in period", "6 months", "lock in", "thamani"},
	},
	{
		ID:       "28",
		Category: "Thamani Equity Fund",
		Question: "What is the risk profile of the Thamani Fund?",
		Answer:   "Aggressive – suitable for investors seeking high returns with significant market risk.",
		Keywords: []string{"risk profile", "aggressive", "high returns", "market risk", "thamani"},
	},
	{
		ID:       "29",
		Category: "Thamani Equity Fund",
		Question: "What fees apply to the Thamani Fund?",
		Answer:   "Initial fee: 0.5% upfront. Annual management fee: 2.0% of average AUM (daily prorated, payable quarterly). Performance fee: 20% of annual net returns (only if positive).",
		Keywords: []string{"fees", "0.5%", "2%", "20%", "management fee", "performance fee", "thamani"},
	},

	// General Investor Info
	{
		ID:       "30",
		Category: "General Investor Info",
		Question: "How does ArvoCap tailor strategies to individual needs?",
		Answer:   "Through investor profiling and personalized portfolio construction based on goals, risk preferences, and financial history.",
		Keywords: []string{"tailor", "personalized", "investor profiling", "portfolio construction", "individual needs"},
	},
	{
		ID:       "31",
		Category: "General Investor Info",
		Question: "How does ArvoCap address market volatility and risk?",
		Answer:   "Through diversification, derivatives hedging (e.g., in Thamani Fund), and stress simulations.",
		Keywords: []string{"market volatility", "risk management", "diversification", "hedging", "stress simulations"},
	},
	{
		ID:       "32",
		Category: "General Investor Info",
		Question: "How can I monitor my investments?",
		Answer:   "Via monthly fact sheets, performance reports, and real-time dashboards on digital portals.",
		Keywords: []string{"monitor", "fact sheets", "performance reports", "dashboards", "digital portals"},
	},
	{
		ID:       "33",
		Category: "General Investor Info",
		Question: "Can I schedule a consultation with ArvoCap?",
		Answer:   "Yes. Consultations can be booked through the website or contact channels.",
		Keywords: []string{"consultation", "schedule", "book", "meeting", "appointment"},
	},
	{
		ID:       "34",
		Category: "General Investor Info",
		Question: "What sets ArvoCap apart from competitors?",
		Answer:   "Bespoke strategies, advanced analytics, diversified sub-funds, and regulatory compliance.",
		Keywords: []string{"competitive advantage", "bespoke", "advanced analytics", "diversified", "compliance"},
	},

	// Funds Overview
	{
		ID:       "35",
		Category: "Funds Overview",
		Question: "How many funds does ArvoCap have?",
		Answer:   "ArvoCap manages 10 funds under its Unit Trust Scheme, approved by the Capital Markets Authority (CMA).",
		Keywords: []string{"funds", "10 funds", "unit trust", "cma approved", "how many"},
	},
	{
		ID:       "36",
		Category: "Fixed Income Funds",
		Question: "What is the ArvoCap Ngao Fixed Income Distribution Fund?",
		Answer:   "It invests in government and corporate bonds and pays investors regular income distributions.",
		Keywords: []string{"ngao", "fixed income", "distribution", "bonds", "regular income"},
	},
	{
		ID:       "37",
		Category: "Fixed Income Funds",
		Question: "What is the ArvoCap Almasi Fixed Income Accumulation Fund?",
		Answer:   "It invests in bonds, but instead of paying out income, it reinvests earnings to compound over time.",
		Keywords: []string{"almasi", "fixed income", "accumulation", "bonds", "compound", "reinvest"},
	},
	{
		ID:       "38",
		Category: "Special Funds",
		Question: "What is the ArvoCap Eurofix Fixed Income Special Fund?",
		Answer:   "A USD-denominated fund investing in fixed income assets. It provides currency diversification and hedges against KES volatility.",
		Keywords: []string{"eurofix", "usd", "fixed income", "currency diversification", "kes volatility"},
	},
	{
		ID:       "39",
		Category: "Equity Funds",
		Question: "What is the ArvoCap Africa Equity Special Fund?",
		Answer:   "It invests in Pan-African equities, providing exposure to growth opportunities across the continent.",
		Keywords: []string{"africa equity", "pan-african", "equities", "continent", "growth opportunities"},
	},
	{
		ID:       "40",
		Category: "Equity Funds",
		Question: "What is the ArvoCap Global Equity Special Fund?",
		Answer:   "It invests in global equities, offering investors access to developed and emerging international markets.",
		Keywords: []string{"global equity", "international markets", "developed", "emerging", "global"},
	},
	{
		ID:       "41",
		Category: "Special Funds",
		Question: "What is the ArvoCap Multi-Asset Strategy Special Fund?",
		Answer:   "A USD fund that mixes equities, bonds, and alternatives to balance risk and returns.",
		Keywords: []string{"multi-asset", "usd fund", "equities", "bonds", "alternatives", "balance risk"},
	},
	{
		ID:       "42",
		Category: "Sharia Funds",
		Question: "What is the ArvoCap Global Sharia Equity Special Fund?",
		Answer:   "A USD-denominated fund that invests in Shariah-compliant global equities, aligned with Islamic finance.",
		Keywords: []string{"global sharia", "usd", "shariah-compliant", "islamic finance", "global equities"},
	},
	{
		ID:       "43",
		Category: "Sharia Funds",
		Question: "What is the ArvoCap Mabruk Sharia Special Fund?",
		Answer:   "A Kenya Shariah-compliant fund offering ethical investments in the local market.",
		Keywords: []string{"mabruk", "sharia", "kenya", "ethical investments", "local market"},
	},
}

var defaultQuickReplies = []string{
	"What is ArvoCap Asset Managers?",
	"Tell me about Money Market Fund",
	"What is Thamani Equity Fund?",
	"What are the fees?",
	"How do I get started?",
	"Contact information",
}
