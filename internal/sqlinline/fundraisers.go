package sqlinline

const QInsertFundraiser = `--sql 20984cd9-095c-475b-86cc-3e7faecdaee6
insert into fundraisers(id, name, url, image_url, description, owner, beneficiary, last_timestamp, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::bigint, $9::timestamptz, now());
`

const fundraiserColumns = `id, name, url, image_url, description, owner, beneficiary,
       donations_count::text, total_donations::text, balance::text, total_withdrawn::text,
       last_timestamp, created_at`

const QSelectFundraiser = `--sql 502269cc-d296-44cc-accc-93925bba57bb
select ` + fundraiserColumns + `
from fundraisers
where id = $1::uuid;
`

const QSelectFundraiserForUpdate = `--sql 9586ee0b-3370-4846-bef9-a6ec7b4e084c
select ` + fundraiserColumns + `
from fundraisers
where id = $1::uuid
for update;
`

const QListFundraisers = `--sql 9b01c4eb-2591-47a6-b2c7-6df1b716587d
select ` + fundraiserColumns + `
from fundraisers
order by seq asc
offset $1::int
limit $2::int;
`

const QCountFundraisers = `--sql c720fead-50b9-4435-bb65-b4ea91302b20
select count(*) from fundraisers;
`

const QUpdateFundraiserState = `--sql 76b10458-50ee-49bc-bbb0-6cc34d0823b8
update fundraisers
set beneficiary = $2::text,
    donations_count = $3::numeric,
    total_donations = $4::numeric,
    balance = $5::numeric,
    total_withdrawn = $6::numeric,
    last_timestamp = $7::bigint,
    updated_at = now()
where id = $1::uuid;
`
