package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- VEHICLE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS vehicle SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS organization ON vehicle TYPE string;
    DEFINE FIELD IF NOT EXISTS source_url ON vehicle TYPE string;
    DEFINE FIELD IF NOT EXISTS vin ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS year ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS make ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS model ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS body_style ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS transmission ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS exterior_color ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS interior_color ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS fuel_type ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS stock_number ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS engine ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS drivetrain ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS description ON vehicle TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS mileage ON vehicle TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS doors ON vehicle TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS passengers ON vehicle TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS price ON vehicle TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS images ON vehicle TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS scraped_at ON vehicle TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS vehicle_org_url ON vehicle FIELDS organization, source_url UNIQUE;
    -- VIN uniqueness per organization. option<string> keeps VIN-less records
    -- out of the index.
    DEFINE INDEX IF NOT EXISTS vehicle_org_vin ON vehicle FIELDS organization, vin UNIQUE;

    -- ==========================================================================
    -- SCRAPE JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS scrape_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS organization ON scrape_job TYPE string;
    DEFINE FIELD IF NOT EXISTS source_url ON scrape_job TYPE string;
    DEFINE FIELD IF NOT EXISTS assigned_user ON scrape_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON scrape_job TYPE string
        ASSERT $value IN ["queued", "scheduled", "running", "succeeded", "failed", "stuck"];
    DEFINE FIELD IF NOT EXISTS scheduled_time ON scrape_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS attempts ON scrape_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS vehicle_id ON scrape_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON scrape_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON scrape_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON scrape_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS job_status ON scrape_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_assigned ON scrape_job FIELDS assigned_user;
    DEFINE INDEX IF NOT EXISTS job_scheduled ON scrape_job FIELDS status, scheduled_time;
`
